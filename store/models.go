// Package store is the relational metadata layer: function and
// deployment rows, and the pointer from a function to its currently
// live deployment.
package store

import (
	"time"

	"github.com/uptrace/bun"
)

// Function is a named, persistent slot that zero or more Deployments
// have been made against. LiveDeploymentID is nil until the first
// successful deployment.
type Function struct {
	bun.BaseModel `bun:"table:functions,alias:f"`

	ID               string     `bun:"id,pk" json:"id"`
	Name             string     `bun:"name,notnull" json:"name"`
	LiveDeploymentID *string    `bun:"live_deployment_id" json:"live_deployment_id,omitempty"`
	CreatedAt        time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt        time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}

// Deployment is an immutable snapshot of source code associated with a
// Function.
type Deployment struct {
	bun.BaseModel `bun:"table:deployments,alias:d"`

	ID         string    `bun:"id,pk" json:"id"`
	FunctionID string    `bun:"function_id,notnull" json:"function_id"`
	Source     string    `bun:"source,type:text,notnull" json:"source"`
	CreatedAt  time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at"`
}
