package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

// dbtx is the common subset of *sql.DB and *sql.Tx the repositories use.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	path string
	db   *sql.DB

	repos repoSet
}

// repoSet bundles repositories bound to one dbtx.
type repoSet struct {
	users       *sqliteUserRepo
	tenants     *sqliteTenantRepo
	memberships *sqliteMembershipRepo
	projects    *sqliteProjectRepo
	entries     *sqliteEntryRepo
}

func newRepoSet(q dbtx) repoSet {
	return repoSet{
		users:       &sqliteUserRepo{db: q},
		tenants:     &sqliteTenantRepo{db: q},
		memberships: &sqliteMembershipRepo{db: q},
		projects:    &sqliteProjectRepo{db: q},
		entries:     &sqliteEntryRepo{db: q},
	}
}

func (r repoSet) Users() UserRepository             { return r.users }
func (r repoSet) Tenants() TenantRepository         { return r.tenants }
func (r repoSet) Memberships() MembershipRepository { return r.memberships }
func (r repoSet) Projects() ProjectRepository       { return r.projects }
func (r repoSet) Entries() EntryRepository          { return r.entries }

// NewSQLiteStorage creates a new SQLite storage.
func NewSQLiteStorage(path string) *SQLiteStorage {
	return &SQLiteStorage{path: path}
}

// Open initializes the database connection.
func (s *SQLiteStorage) Open() error {
	ctx := context.Background()

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	// SQLite is single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s.db = db
	s.repos = newRepoSet(db)

	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying database connection for health checks.
func (s *SQLiteStorage) DB() *sql.DB {
	return s.db
}

// Migrate runs database migrations.
func (s *SQLiteStorage) Migrate() error {
	return runMigrations(s.db)
}

// WithTx runs fn against repositories bound to a single transaction.
func (s *SQLiteStorage) WithTx(ctx context.Context, fn func(tx Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(newRepoSet(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %w: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Users returns the user repository.
func (s *SQLiteStorage) Users() UserRepository {
	return s.repos.users
}

// Tenants returns the tenant repository.
func (s *SQLiteStorage) Tenants() TenantRepository {
	return s.repos.tenants
}

// Memberships returns the membership repository.
func (s *SQLiteStorage) Memberships() MembershipRepository {
	return s.repos.memberships
}

// Projects returns the project repository.
func (s *SQLiteStorage) Projects() ProjectRepository {
	return s.repos.projects
}

// Entries returns the time entry repository.
func (s *SQLiteStorage) Entries() EntryRepository {
	return s.repos.entries
}

// wrapInsertErr maps SQLite uniqueness violations to ErrDuplicate so the
// business layer can turn them into Conflict responses.
func wrapInsertErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", op, err)
}
