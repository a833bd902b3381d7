package models

import (
	"time"
)

// TimeEntry is a block of tracked time against a project, attributed to the
// user who created it. A nil EndTime means the timer is still running; at
// most one running entry may exist per user at any moment.
type TimeEntry struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"project_id"`
	CreatedByID string     `json:"created_by_id"`
	Description string     `json:"description,omitempty"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Running reports whether the entry is still open.
func (e *TimeEntry) Running() bool {
	return e.EndTime == nil
}

// TimesValid reports whether the entry satisfies the invariant
// end == nil || end > start.
func (e *TimeEntry) TimesValid() bool {
	return e.EndTime == nil || e.EndTime.After(e.StartTime)
}
