package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/tempus/internal/models"
)

type sqliteEntryRepo struct {
	db dbtx
}

const entryColumns = "id, project_id, created_by, description, start_time, end_time, created_at, updated_at"

func scanEntry(row interface{ Scan(dest ...any) error }) (*models.TimeEntry, error) {
	entry := &models.TimeEntry{}
	var description sql.NullString
	var endTime sql.NullTime
	err := row.Scan(
		&entry.ID, &entry.ProjectID, &entry.CreatedByID, &description,
		&entry.StartTime, &endTime, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Description = description.String
	if endTime.Valid {
		t := endTime.Time
		entry.EndTime = &t
	}
	return entry, nil
}

func (r *sqliteEntryRepo) Create(ctx context.Context, entry *models.TimeEntry) error {
	query := `
		INSERT INTO time_entries (id, project_id, created_by, description, start_time, end_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ProjectID, entry.CreatedByID, entry.Description,
		entry.StartTime, entry.EndTime, entry.CreatedAt, entry.UpdatedAt,
	)
	return wrapInsertErr("insert time entry", err)
}

// GetByIDAndCreator filters by (id, created_by) together. Another user's
// entry scans as no rows, identical to a missing entry.
func (r *sqliteEntryRepo) GetByIDAndCreator(ctx context.Context, id, creatorID string) (*models.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries WHERE id = ? AND created_by = ?
	`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id, creatorID))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get time entry by id: %w", err)
	}
	return entry, nil
}

func (r *sqliteEntryRepo) GetActiveByCreator(ctx context.Context, creatorID string) (*models.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries WHERE created_by = ? AND end_time IS NULL
	`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, creatorID))
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active time entry: %w", err)
	}
	return entry, nil
}

func (r *sqliteEntryRepo) ListByCreator(ctx context.Context, creatorID string) ([]*models.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries WHERE created_by = ? ORDER BY start_time DESC
	`
	return r.list(ctx, query, creatorID)
}

func (r *sqliteEntryRepo) ListByProject(ctx context.Context, projectID string) ([]*models.TimeEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM time_entries WHERE project_id = ? ORDER BY start_time DESC
	`
	return r.list(ctx, query, projectID)
}

func (r *sqliteEntryRepo) list(ctx context.Context, query string, arg any) ([]*models.TimeEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.TimeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (r *sqliteEntryRepo) Update(ctx context.Context, entry *models.TimeEntry) error {
	query := `
		UPDATE time_entries SET project_id = ?, description = ?, start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ? AND created_by = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		entry.ProjectID, entry.Description, entry.StartTime, entry.EndTime,
		entry.UpdatedAt, entry.ID, entry.CreatedByID,
	)
	if err != nil {
		return fmt.Errorf("update time entry: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("time entry not found: %s", entry.ID)
	}
	return nil
}

func (r *sqliteEntryRepo) Delete(ctx context.Context, id, creatorID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM time_entries WHERE id = ? AND created_by = ?", id, creatorID)
	if err != nil {
		return false, fmt.Errorf("delete time entry: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
