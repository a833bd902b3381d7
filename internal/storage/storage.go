// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"

	"github.com/good-yellow-bee/tempus/internal/models"
)

// ErrDuplicate is returned when an insert violates a uniqueness constraint
// (duplicate email, second running timer for the same user).
var ErrDuplicate = errors.New("duplicate row")

// Repositories groups the per-entity repositories. Both Storage and the
// transaction handle passed to WithTx satisfy it, so multi-step write
// sequences run against the same interface.
type Repositories interface {
	Users() UserRepository
	Tenants() TenantRepository
	Memberships() MembershipRepository
	Projects() ProjectRepository
	Entries() EntryRepository
}

// Storage is the main interface for database operations.
type Storage interface {
	Repositories

	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// WithTx runs fn inside a single transaction. The transaction is
	// committed if fn returns nil and rolled back otherwise; partial
	// state is never observable by concurrent readers.
	WithTx(ctx context.Context, fn func(tx Repositories) error) error
}

// UserRepository defines operations for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByEmail looks up a user by normalized email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// TenantRepository defines operations for tenants.
type TenantRepository interface {
	Create(ctx context.Context, tenant *models.Tenant) error
	GetByID(ctx context.Context, id string) (*models.Tenant, error)
	List(ctx context.Context) ([]*models.Tenant, error)
}

// MembershipRepository defines operations for tenant memberships.
type MembershipRepository interface {
	Create(ctx context.Context, m *models.Membership) error
	// GetByUserEmail returns the membership joined to its user, looked up
	// by the user's email. Returns (nil, nil, nil) when no user or no
	// membership exists so callers cannot distinguish the two.
	GetByUserEmail(ctx context.Context, email string) (*models.Membership, *models.User, error)
	GetByUserID(ctx context.Context, userID string) (*models.Membership, error)
	// GetDetailByUserID returns the membership joined to its user and tenant.
	GetDetailByUserID(ctx context.Context, userID string) (*models.MembershipDetail, error)
}

// ProjectRepository defines operations for projects. All single-project
// lookups take the tenant id together with the project id; a project under a
// different tenant is reported as not found, never as forbidden.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByIDAndTenant(ctx context.Context, id, tenantID string) (*models.Project, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	// Delete removes the project scoped by (id, tenantID). It reports
	// whether a row was deleted.
	Delete(ctx context.Context, id, tenantID string) (bool, error)
}

// EntryRepository defines operations for time entries. Single-entry lookups
// are scoped by creator id: entries belong to the user who logged them.
type EntryRepository interface {
	// Create inserts an entry. Inserting a second running entry for the
	// same creator fails with ErrDuplicate via the partial unique index.
	Create(ctx context.Context, entry *models.TimeEntry) error
	GetByIDAndCreator(ctx context.Context, id, creatorID string) (*models.TimeEntry, error)
	// GetActiveByCreator returns the creator's running entry, or nil.
	GetActiveByCreator(ctx context.Context, creatorID string) (*models.TimeEntry, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.TimeEntry, error)
	ListByProject(ctx context.Context, projectID string) ([]*models.TimeEntry, error)
	Update(ctx context.Context, entry *models.TimeEntry) error
	Delete(ctx context.Context, id, creatorID string) (bool, error)
}
