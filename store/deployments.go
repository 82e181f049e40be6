package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"faasrun/ids"
)

// CreateDeployment inserts an immutable deployment row for functionID.
// It does not touch the function's live_deployment_id — callers decide
// when (or whether) to promote a deployment to live, e.g. only after
// validating it compiles.
func (s *Store) CreateDeployment(ctx context.Context, functionID, source string) (*Deployment, error) {
	if _, err := s.GetFunction(ctx, functionID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dep := &Deployment{
		ID:         ids.NewDeploymentID(),
		FunctionID: functionID,
		Source:     source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := s.NewInsert().Model(dep).Exec(ctx); err != nil {
		return nil, fmt.Errorf("inserting deployment: %w", err)
	}
	return dep, nil
}

// GetDeployment fetches a deployment by id.
func (s *Store) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	dep := new(Deployment)
	err := s.NewSelect().Model(dep).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("selecting deployment %s: %w", id, err)
	}
	return dep, nil
}

// LiveDeployment resolves the function's current live deployment, or
// ErrNotFound if the function has never been deployed.
func (s *Store) LiveDeployment(ctx context.Context, functionID string) (*Deployment, error) {
	fn, err := s.GetFunction(ctx, functionID)
	if err != nil {
		return nil, err
	}
	if fn.LiveDeploymentID == nil {
		return nil, ErrNotFound
	}
	return s.GetDeployment(ctx, *fn.LiveDeploymentID)
}
