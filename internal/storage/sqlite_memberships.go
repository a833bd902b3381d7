package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/good-yellow-bee/tempus/internal/models"
)

type sqliteMembershipRepo struct {
	db dbtx
}

func (r *sqliteMembershipRepo) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO tenant_users (tenant_id, user_id, role, created_at)
		VALUES (?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, m.TenantID, m.UserID, m.Role, m.CreatedAt)
	return wrapInsertErr("insert membership", err)
}

func (r *sqliteMembershipRepo) GetByUserEmail(ctx context.Context, email string) (*models.Membership, *models.User, error) {
	query := `
		SELECT tu.tenant_id, tu.user_id, tu.role, tu.created_at,
		       u.id, u.name, u.email, u.password_hash, u.created_at, u.updated_at
		FROM tenant_users tu
		JOIN users u ON u.id = tu.user_id
		WHERE u.email = ?
	`
	m := &models.Membership{}
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, models.NormalizeEmail(email)).Scan(
		&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt,
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get membership by email: %w", err)
	}
	return m, user, nil
}

func (r *sqliteMembershipRepo) GetByUserID(ctx context.Context, userID string) (*models.Membership, error) {
	query := `
		SELECT tenant_id, user_id, role, created_at
		FROM tenant_users WHERE user_id = ?
	`
	m := &models.Membership{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&m.TenantID, &m.UserID, &m.Role, &m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership by user id: %w", err)
	}
	return m, nil
}

func (r *sqliteMembershipRepo) GetDetailByUserID(ctx context.Context, userID string) (*models.MembershipDetail, error) {
	query := `
		SELECT tu.tenant_id, tu.user_id, tu.role, tu.created_at,
		       u.name, u.email, t.name
		FROM tenant_users tu
		JOIN users u ON u.id = tu.user_id
		JOIN tenants t ON t.id = tu.tenant_id
		WHERE tu.user_id = ?
	`
	d := &models.MembershipDetail{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&d.TenantID, &d.UserID, &d.Role, &d.CreatedAt,
		&d.UserName, &d.UserEmail, &d.TenantName,
	)
	if err == sql.ErrNoRows {
		//nolint:nilnil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get membership detail: %w", err)
	}
	return d, nil
}
