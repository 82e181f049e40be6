package engine

import "fmt"

// CompileError means the source failed to parse, bundle, instantiate, or
// evaluate its top-level.
type CompileError struct {
	DeploymentID string
	Err          error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compiling %s: %s", e.DeploymentID, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ContractError means the module has no callable default export.
type ContractError struct {
	DeploymentID string
	Reason       string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("deployment %s violates contract: %s", e.DeploymentID, e.Reason)
}

// RuntimeError means user code threw, or its returned promise rejected.
type RuntimeError struct {
	DeploymentID string
	Message      string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("deployment %s: %s", e.DeploymentID, e.Message)
}

// SerializationError means the fulfillment value could not be turned into JSON.
type SerializationError struct {
	DeploymentID string
	Err          error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serializing result of %s: %s", e.DeploymentID, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// TimeoutError means an in-flight invocation was interrupted because its
// caller's done channel closed. The Isolate that produced it must be discarded.
type TimeoutError struct {
	DeploymentID string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("deployment %s: invocation timed out", e.DeploymentID)
}
