// Package client is a thin HTTP client over the platform's API surface,
// used by the CLI. It never talks to the store or engine directly.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBaseURL is used when neither --base-url nor BASE_URL is set.
const DefaultBaseURL = "http://localhost:8080"

// Client is a plain net/http wrapper around the function/deployment/
// invocation routes.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New builds a Client against baseURL.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// StatusError carries an HTTP status code so callers can map it onto
// the CLI's exit-code convention (1 for 422, nonzero for anything else
// that isn't 2xx).
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

func (c *Client) do(method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decoding response body: %w", err)
		}
	}
	return nil
}

// FunctionRow mirrors the API's function representation.
type FunctionRow struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	LiveDeploymentID *string `json:"live_deployment_id,omitempty"`
}

// DeploymentRow mirrors the API's deployment representation.
type DeploymentRow struct {
	ID         string `json:"id"`
	FunctionID string `json:"function_id"`
	Source     string `json:"source"`
}

// InvokeSource calls POST /invoke and returns the raw JSON result.
func (c *Client) InvokeSource(source string, payload json.RawMessage) (json.RawMessage, error) {
	body := struct {
		Source  string          `json:"source"`
		Payload json.RawMessage `json:"payload,omitempty"`
	}{Source: source, Payload: payload}

	var out json.RawMessage
	if err := c.do(http.MethodPost, "/invoke", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFunction calls POST /functions.
func (c *Client) CreateFunction(name string) (*FunctionRow, error) {
	body := struct {
		Name string `json:"name,omitempty"`
	}{Name: name}

	var out struct {
		Function FunctionRow `json:"function"`
	}
	if err := c.do(http.MethodPost, "/functions", body, &out); err != nil {
		return nil, err
	}
	return &out.Function, nil
}

// GetFunction calls GET /functions/{id}.
func (c *Client) GetFunction(id string) (*FunctionRow, error) {
	var out struct {
		Function FunctionRow `json:"function"`
	}
	if err := c.do(http.MethodGet, "/functions/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out.Function, nil
}

// Deploy calls POST /functions/{id}/deployments.
func (c *Client) Deploy(functionID, source string) (*DeploymentRow, error) {
	body := struct {
		Source string `json:"source"`
	}{Source: source}

	var out struct {
		Deployment DeploymentRow `json:"deployment"`
	}
	if err := c.do(http.MethodPost, "/functions/"+functionID+"/deployments", body, &out); err != nil {
		return nil, err
	}
	return &out.Deployment, nil
}

// InvokeFunction calls POST /functions/{id}/invocations.
func (c *Client) InvokeFunction(functionID string, payload json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.do(http.MethodPost, "/functions/"+functionID+"/invocations", payload, &out); err != nil {
		return nil, err
	}
	return out, nil
}
