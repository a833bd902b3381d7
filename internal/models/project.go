package models

import (
	"time"
)

// Project belongs to exactly one Tenant. Projects are only visible to
// members of their owning tenant.
type Project struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	CreatedByID string    `json:"created_by_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProject creates a new Project with initialized timestamps.
func NewProject(name, tenantID, createdByID string) *Project {
	now := time.Now()
	return &Project{
		TenantID:    tenantID,
		Name:        name,
		CreatedByID: createdByID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
