package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"faasrun/engine"
	"faasrun/store"
)

// errorToHuma maps the engine/store error taxonomy onto the huma status
// codes spec.md §7 assigns an invocation route: CompileError/ContractError/
// RuntimeError/SerializationError/TimeoutError all surface as 500 with the
// engine's message, NotFound as 404, everything else as 500. The
// deployment-creation route uses validationErrorToHuma instead, since a
// bad deployment source is a 422 there rather than a 500.
func errorToHuma(err error) huma.StatusError {
	if err == nil {
		return nil
	}

	if errors.Is(err, store.ErrNotFound) {
		return huma.Error404NotFound(err.Error())
	}

	var compileErr *engine.CompileError
	if errors.As(err, &compileErr) {
		return huma.Error500InternalServerError("compile error: " + compileErr.Error())
	}

	var contractErr *engine.ContractError
	if errors.As(err, &contractErr) {
		return huma.Error500InternalServerError("contract error: " + contractErr.Error())
	}

	var runtimeErr *engine.RuntimeError
	if errors.As(err, &runtimeErr) {
		return huma.Error500InternalServerError("runtime error: " + runtimeErr.Error())
	}

	var serErr *engine.SerializationError
	if errors.As(err, &serErr) {
		return huma.Error500InternalServerError("serialization error: " + serErr.Error())
	}

	var timeoutErr *engine.TimeoutError
	if errors.As(err, &timeoutErr) {
		return huma.Error500InternalServerError("timeout: " + timeoutErr.Error())
	}

	return huma.Error500InternalServerError("storage error: " + err.Error())
}

// validationErrorToHuma maps engine.ValidateSource's errors the way
// spec.md §7's deployment route requires: a bad deployment source is a
// 422, not a 500, since the source came from the caller's own request
// body rather than a previously-accepted deployment misbehaving at
// invocation time.
func validationErrorToHuma(err error) huma.StatusError {
	if err == nil {
		return nil
	}

	var compileErr *engine.CompileError
	if errors.As(err, &compileErr) {
		return huma.Error422UnprocessableEntity("compile error: " + compileErr.Error())
	}

	var contractErr *engine.ContractError
	if errors.As(err, &contractErr) {
		return huma.Error422UnprocessableEntity("contract error: " + contractErr.Error())
	}

	return errorToHuma(err)
}
