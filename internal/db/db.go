// Package db owns the process-wide connection pool and the row-level-security
// transaction runner every authenticated operation goes through.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrInvalidIdentity is returned when a caller id does not match the strict
// UUID pattern and therefore must never reach the session-configuration
// statement.
var ErrInvalidIdentity = errors.New("db: invalid user id for row-level security")

// uuidPattern is the one shape allowed into an identifier slot. It admits no
// quote characters, which is what makes the SET LOCAL interpolation below safe.
var uuidPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidUserID reports whether s is acceptable as a row-level-security subject.
func ValidUserID(s string) bool {
	return uuidPattern.MatchString(s)
}

// DB wraps the shared *sql.DB pool.
type DB struct {
	db *sql.DB
}

// Open connects to PostgreSQL through the pgx stdlib driver.
func Open(dsn string) (*DB, error) {
	sqldb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	sqldb.SetMaxOpenConns(50)
	sqldb.SetMaxIdleConns(25)
	sqldb.SetConnMaxLifetime(15 * time.Minute)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)
	return &DB{db: sqldb}, nil
}

// New wraps an existing pool. Used by tests with sqlmock.
func New(sqldb *sql.DB) *DB { return &DB{db: sqldb} }

func (d *DB) Close() error { return d.db.Close() }

// Ping is used by the readiness probe.
func (d *DB) Ping(ctx context.Context) error { return d.db.PingContext(ctx) }

// Unscoped returns the raw pool for operations that must run without a bound
// identity, such as looking up an account by email before authentication.
// It performs no transaction wrapping and no context binding and must never
// be used for tables governed by row-level security.
func (d *DB) Unscoped() *sql.DB { return d.db }

// WithUser executes fn inside a single transaction with userID bound as the
// row-level-security subject for that transaction only. The binding strictly
// precedes fn; on any error from fn the transaction is rolled back and the
// original error returned unchanged; the connection always goes back to the
// pool.
func (d *DB) WithUser(ctx context.Context, userID string, fn func(ctx context.Context, tx *sql.Tx) error) error {
	if !ValidUserID(userID) {
		return ErrInvalidIdentity
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	if err := bindCurrentUser(ctx, tx, userID); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// bindCurrentUser is the single place that constructs the session
// configuration statement. SET LOCAL does not accept bound parameters, so the
// id is interpolated; callers guarantee it passed ValidUserID first.
func bindCurrentUser(ctx context.Context, tx *sql.Tx, userID string) error {
	stmt := fmt.Sprintf(`SET LOCAL app.current_user_id = '%s'`, userID)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("db: bind security context: %w", err)
	}
	return nil
}
