package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"faasrun/engine"
	"faasrun/store"
)

// FunctionRow is the API's view of a store.Function.
type FunctionRow struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	LiveDeploymentID *string   `json:"live_deployment_id,omitempty"`
}

// DeploymentRow is the API's view of a store.Deployment.
type DeploymentRow struct {
	ID         string `json:"id"`
	FunctionID string `json:"function_id"`
	Source     string `json:"source"`
}

type CreateFunctionInput struct {
	Body struct {
		Name string `json:"name,omitempty" minLength:"1" doc:"Function name. Generated if absent."`
	}
}

type FunctionOutput struct {
	Body struct {
		Function FunctionRow `json:"function"`
	}
}

type ListFunctionsOutput struct {
	Body struct {
		Functions []FunctionRow `json:"functions"`
	}
}

type GetFunctionInput struct {
	ID string `path:"id" doc:"Function id."`
}

type CreateDeploymentInput struct {
	ID   string `path:"id" doc:"Function id."`
	Body struct {
		Source string `json:"source" required:"true" minLength:"1" doc:"Self-contained ES module source exporting a default async function."`
	}
}

type DeploymentOutput struct {
	Body struct {
		Deployment DeploymentRow `json:"deployment"`
	}
}

func (s *Server) registerFunctionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "create-function",
		Method:      http.MethodPost,
		Path:        "/functions",
		Summary:     "Create a function",
		Tags:        []string{"Functions"},
	}, s.handleCreateFunction)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-functions",
		Method:      http.MethodGet,
		Path:        "/functions",
		Summary:     "List functions",
		Tags:        []string{"Functions"},
	}, s.handleListFunctions)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-function",
		Method:      http.MethodGet,
		Path:        "/functions/{id}",
		Summary:     "Get a function",
		Tags:        []string{"Functions"},
	}, s.handleGetFunction)

	huma.Register(s.api, huma.Operation{
		OperationID: "create-deployment",
		Method:      http.MethodPost,
		Path:        "/functions/{id}/deployments",
		Summary:     "Deploy source to a function",
		Description: "Validates the source by compiling it eagerly; on success the new deployment becomes the function's live deployment.",
		Tags:        []string{"Functions"},
	}, s.handleCreateDeployment)
}

func (s *Server) handleCreateFunction(ctx context.Context, in *CreateFunctionInput) (*FunctionOutput, error) {
	fn, err := s.store.CreateFunction(ctx, in.Body.Name)
	if err != nil {
		return nil, errorToHuma(err)
	}
	out := &FunctionOutput{}
	out.Body.Function = toFunctionRow(fn)
	return out, nil
}

func (s *Server) handleListFunctions(ctx context.Context, _ *struct{}) (*ListFunctionsOutput, error) {
	fns, err := s.store.ListFunctions(ctx)
	if err != nil {
		return nil, errorToHuma(err)
	}
	out := &ListFunctionsOutput{}
	out.Body.Functions = make([]FunctionRow, 0, len(fns))
	for _, fn := range fns {
		out.Body.Functions = append(out.Body.Functions, toFunctionRow(fn))
	}
	return out, nil
}

func (s *Server) handleGetFunction(ctx context.Context, in *GetFunctionInput) (*FunctionOutput, error) {
	fn, err := s.store.GetFunction(ctx, in.ID)
	if err != nil {
		return nil, errorToHuma(err)
	}
	out := &FunctionOutput{}
	out.Body.Function = toFunctionRow(fn)
	return out, nil
}

func (s *Server) handleCreateDeployment(ctx context.Context, in *CreateDeploymentInput) (*DeploymentOutput, error) {
	if _, err := s.store.GetFunction(ctx, in.ID); err != nil {
		return nil, errorToHuma(err)
	}

	if err := engine.ValidateSource(in.Body.Source, s.cfg); err != nil {
		return nil, validationErrorToHuma(err)
	}

	dep, err := s.store.CreateDeployment(ctx, in.ID, in.Body.Source)
	if err != nil {
		return nil, errorToHuma(err)
	}

	if err := s.store.SetLiveDeployment(ctx, in.ID, dep.ID); err != nil {
		return nil, errorToHuma(err)
	}

	out := &DeploymentOutput{}
	out.Body.Deployment = DeploymentRow{ID: dep.ID, FunctionID: dep.FunctionID, Source: dep.Source}
	return out, nil
}

func toFunctionRow(fn *store.Function) FunctionRow {
	return FunctionRow{
		ID:               fn.ID,
		Name:             fn.Name,
		CreatedAt:        fn.CreatedAt,
		UpdatedAt:        fn.UpdatedAt,
		LiveDeploymentID: fn.LiveDeploymentID,
	}
}
