package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/tempus/internal/models"
)

type sqliteProjectRepo struct {
	db dbtx
}

func (r *sqliteProjectRepo) Create(ctx context.Context, project *models.Project) error {
	query := `
		INSERT INTO projects (id, tenant_id, name, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		project.ID, project.TenantID, project.Name, project.CreatedByID,
		project.CreatedAt, project.UpdatedAt,
	)
	return wrapInsertErr("insert project", err)
}

// GetByIDAndTenant filters by (id, tenant_id) together. A project under
// another tenant scans as no rows, identical to a missing project.
func (r *sqliteProjectRepo) GetByIDAndTenant(ctx context.Context, id, tenantID string) (*models.Project, error) {
	query := `
		SELECT id, tenant_id, name, created_by, created_at, updated_at
		FROM projects WHERE id = ? AND tenant_id = ?
	`
	project := &models.Project{}
	err := r.db.QueryRowContext(ctx, query, id, tenantID).Scan(
		&project.ID, &project.TenantID, &project.Name, &project.CreatedByID,
		&project.CreatedAt, &project.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return project, nil
}

func (r *sqliteProjectRepo) ListByTenant(ctx context.Context, tenantID string) ([]*models.Project, error) {
	query := `
		SELECT id, tenant_id, name, created_by, created_at, updated_at
		FROM projects WHERE tenant_id = ? ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		project := &models.Project{}
		err := rows.Scan(
			&project.ID, &project.TenantID, &project.Name, &project.CreatedByID,
			&project.CreatedAt, &project.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *sqliteProjectRepo) Update(ctx context.Context, project *models.Project) error {
	query := `
		UPDATE projects SET name = ?, updated_at = ?
		WHERE id = ? AND tenant_id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		project.Name, project.UpdatedAt,
		project.ID, project.TenantID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("project not found: %s", project.ID)
	}
	return nil
}

func (r *sqliteProjectRepo) Delete(ctx context.Context, id, tenantID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM projects WHERE id = ? AND tenant_id = ?", id, tenantID)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}
