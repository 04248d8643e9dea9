// Package database is the pgx-backed persistence layer for the
// files → sheets → rows model plus users, dashboards, and per-user
// OAuth connections.
package database

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned by mutations targeting a record that does not
// exist. Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("not found")

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

//go:embed schema.sql
var schemaSQL string

// Store provides data access for all persisted entities.
type Store struct {
	db DBTX
}

// New creates a Store on top of a pool or transaction.
func New(db DBTX) *Store {
	return &Store{db: db}
}

// EnsureSchema creates all tables and indexes if they do not exist.
// Statements are idempotent, so running this on every startup is safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
