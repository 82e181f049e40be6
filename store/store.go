package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/glebarez/sqlite"
)

// Store wraps the Bun DB instance holding function and deployment rows.
type Store struct {
	*bun.DB
}

// Open connects to the sqlite database at dsn, enables foreign key
// enforcement (sqlite does not default this on), and creates the
// function/deployment tables if they don't already exist.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// PRAGMA foreign_keys is per connection (and ":memory:" is a separate
	// database per connection), so keep the pool at a single connection.
	sqldb.SetMaxOpenConns(1)

	if _, err := sqldb.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	s := &Store{DB: db}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) createTables(ctx context.Context) error {
	// sqlite resolves foreign keys lazily (at DML time, not at CREATE
	// TABLE time), so functions can reference the not-yet-created
	// deployments table here.
	if _, err := s.NewCreateTable().
		Model((*Function)(nil)).
		IfNotExists().
		ForeignKey(`("live_deployment_id") REFERENCES deployments ("id") ON DELETE SET NULL`).
		Exec(ctx); err != nil {
		return fmt.Errorf("creating functions table: %w", err)
	}

	if _, err := s.NewCreateTable().
		Model((*Deployment)(nil)).
		IfNotExists().
		ForeignKey(`("function_id") REFERENCES functions ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("creating deployments table: %w", err)
	}

	return nil
}

// Close releases the underlying sqlite connection.
func (s *Store) Close() error {
	return s.DB.Close()
}
