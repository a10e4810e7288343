// Package pg is the Postgres-backed reference implementation of the
// authority interfaces. It performs storage-level checks only: entity
// existence, duplicate detection, and self-edge rejection. Constraint
// algorithms such as separation-of-duty conflict detection or hierarchy
// cycle search are not evaluated here.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/john77eipe/directory-fortress-enmasse/internal/authority"
	"github.com/john77eipe/directory-fortress-enmasse/internal/rbac"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// defaultContext is the tenant used when a request carries no contextId.
const defaultContext = "HOME"

// Store owns the database handle the per-call managers run on.
type Store struct {
	db *sql.DB
}

var _ authority.Factory = (*Store)(nil)

// Open connects to Postgres via the pgx stdlib driver.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle, used by tests.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Ping verifies database connectivity, used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func tenant(contextID string) string {
	if contextID == "" {
		return defaultContext
	}
	return contextID
}

func (s *Store) Admin(ctx context.Context, contextID string) (authority.AdminManager, error) {
	return &adminMgr{db: s.db, contextID: tenant(contextID)}, nil
}

func (s *Store) DelegatedAdmin(ctx context.Context, contextID string) (authority.DelegatedAdminManager, error) {
	return &delegatedMgr{db: s.db, contextID: tenant(contextID)}, nil
}

func (s *Store) Review(ctx context.Context, contextID string) (authority.ReviewManager, error) {
	return &reviewMgr{db: s.db, contextID: tenant(contextID)}, nil
}

func (s *Store) Access(ctx context.Context, contextID string) (authority.AccessManager, error) {
	return &accessMgr{db: s.db, contextID: tenant(contextID)}, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// mapDBError narrows a driver error to the given sentinel codes: dup is
// answered on unique violations, missing on foreign-key violations and
// sql.ErrNoRows. Anything else passes through untouched.
func mapDBError(err error, dup, missing *rbac.SecurityError) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) && missing != nil {
		return missing
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			if dup != nil {
				return dup
			}
		case pgErrForeignKeyViolation:
			if missing != nil {
				return missing
			}
		}
	}
	return err
}

func sdType(static bool) string {
	if static {
		return "static"
	}
	return "dynamic"
}
