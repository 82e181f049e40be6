package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"faasrun/ids"
)

// ErrNotFound is returned when a lookup by id finds nothing.
var ErrNotFound = errors.New("not found")

// CreateFunction inserts a new function row, generating a name if name
// is empty.
func (s *Store) CreateFunction(ctx context.Context, name string) (*Function, error) {
	if name == "" {
		name = "function-" + ids.NewFunctionID()[3:11]
	}

	now := time.Now().UTC()
	fn := &Function{
		ID:        ids.NewFunctionID(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.NewInsert().Model(fn).Exec(ctx); err != nil {
		return nil, fmt.Errorf("inserting function: %w", err)
	}
	return fn, nil
}

// GetFunction fetches a function by id, returning ErrNotFound if absent.
func (s *Store) GetFunction(ctx context.Context, id string) (*Function, error) {
	fn := new(Function)
	err := s.NewSelect().Model(fn).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting function %s: %w", id, err)
	}
	return fn, nil
}

// ListFunctions returns every function row, most recently created first.
func (s *Store) ListFunctions(ctx context.Context) ([]*Function, error) {
	var fns []*Function
	if err := s.NewSelect().Model(&fns).OrderExpr("created_at DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing functions: %w", err)
	}
	return fns, nil
}

// SetLiveDeployment atomically points function id at deploymentID. The
// metadata store commit here happens-before any invocation that expects
// to observe it: callers must select the Isolate only after this
// returns.
func (s *Store) SetLiveDeployment(ctx context.Context, functionID, deploymentID string) error {
	res, err := s.NewUpdate().
		Model((*Function)(nil)).
		Set("live_deployment_id = ?", deploymentID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", functionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("updating live deployment for function %s: %w", functionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
