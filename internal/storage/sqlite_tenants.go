package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/tempus/internal/models"
)

type sqliteTenantRepo struct {
	db dbtx
}

func (r *sqliteTenantRepo) Create(ctx context.Context, tenant *models.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, created_at)
		VALUES (?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, tenant.ID, tenant.Name, tenant.CreatedAt)
	return wrapInsertErr("insert tenant", err)
}

func (r *sqliteTenantRepo) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	query := `
		SELECT id, name, created_at
		FROM tenants WHERE id = ?
	`
	tenant := &models.Tenant{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID, &tenant.Name, &tenant.CreatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant by id: %w", err)
	}
	return tenant, nil
}

func (r *sqliteTenantRepo) List(ctx context.Context) ([]*models.Tenant, error) {
	query := `
		SELECT id, name, created_at
		FROM tenants ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*models.Tenant
	for rows.Next() {
		tenant := &models.Tenant{}
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}
