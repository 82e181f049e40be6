package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"faasrun/engine"
)

// InvokeInput is the body of POST /invoke: self-contained source plus an
// optional JSON payload.
type InvokeInput struct {
	Body struct {
		Source  string          `json:"source" required:"true" minLength:"1" doc:"Self-contained ES module source exporting a default async function."`
		Payload json.RawMessage `json:"payload,omitempty" doc:"JSON value passed as the sole argument to the default export. Absent or null arrives as undefined."`
	}
}

// InvokeOutput carries whatever JSON value the default export returned.
type InvokeOutput struct {
	Body json.RawMessage
}

// FunctionInvocationInput is the body of POST /functions/{id}/invocations:
// the raw payload, with no envelope.
type FunctionInvocationInput struct {
	ID   string          `path:"id" doc:"Function id."`
	Body json.RawMessage `doc:"JSON value (or null) passed as the sole argument to the live deployment's default export."`
}

func (s *Server) registerInvokeRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "invoke-source",
		Method:      http.MethodPost,
		Path:        "/invoke",
		Summary:     "Compile and invoke ad-hoc source",
		Description: "Builds a throwaway Isolate from source, invokes it once with payload, and discards it. Never touches the warm Isolate cache.",
		Tags:        []string{"Invoke"},
	}, s.handleInvoke)

	huma.Register(s.api, huma.Operation{
		OperationID: "invoke-function",
		Method:      http.MethodPost,
		Path:        "/functions/{id}/invocations",
		Summary:     "Invoke a function's live deployment",
		Tags:        []string{"Invoke"},
	}, s.handleInvokeFunction)
}

func (s *Server) handleInvoke(ctx context.Context, in *InvokeInput) (*InvokeOutput, error) {
	result, err := engine.CompileAndInvokeSource(s.host, s.cfg, s.metrics, in.Body.Source, in.Body.Payload)
	if err != nil {
		return nil, errorToHuma(err)
	}
	return &InvokeOutput{Body: result}, nil
}

func (s *Server) handleInvokeFunction(ctx context.Context, in *FunctionInvocationInput) (*InvokeOutput, error) {
	dep, err := s.store.LiveDeployment(ctx, in.ID)
	if err != nil {
		return nil, errorToHuma(err)
	}

	result, err := s.cache.InvokeFunction(in.ID, dep.ID, dep.Source, in.Body)
	if err != nil {
		return nil, errorToHuma(err)
	}
	return &InvokeOutput{Body: result}, nil
}
