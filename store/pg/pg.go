// Package pg implements the directory contract and the audit sink on
// PostgreSQL via database/sql and the pgx stdlib driver.
package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/stratumhq/adminauth"
)

const uniqueViolation = "23505"

// Store speaks to the platform's relational schema. It implements
// [adminauth.DirectoryStore] and [adminauth.AuditSink].
type Store struct {
	db *sql.DB
}

// Open connects, tunes the pool, and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db}, nil
}

// New wraps an existing handle, mainly for tests.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// mapErr translates driver errors into the sentinels callers match on.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return adminauth.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return adminauth.ErrConflict
	}
	return err
}

// tenantParam maps the empty platform-level tenant onto SQL NULL.
func tenantParam(tenantID string) sql.NullString {
	if tenantID == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: tenantID, Valid: true}
}
