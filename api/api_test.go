package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/require"

	"faasrun/engine"
	"faasrun/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	host := engine.NewHost()
	require.NoError(t, host.Init())
	t.Cleanup(host.Shutdown)

	metrics := engine.NewMetrics()
	cache := engine.NewCache(host, engine.Config{}, metrics)
	t.Cleanup(cache.Shutdown)

	return NewServer(ServerConfig{
		Store:   s,
		Host:    host,
		Cache:   cache,
		Metrics: metrics,
	})
}

func TestHandleInvoke(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	in := &InvokeInput{}
	in.Body.Source = `export default async ()=>({result:'hello'})`

	out, err := s.handleInvoke(ctx, in)
	require.NoError(t, err)
	require.JSONEq(t, `{"result":"hello"}`, string(out.Body))
}

func TestHandleInvokeRuntimeErrorSurfaces(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	in := &InvokeInput{}
	in.Body.Source = `export default async()=>{throw new Error('error')}`

	_, err := s.handleInvoke(ctx, in)
	require.Error(t, err)
	require.Contains(t, err.Error(), "error")
}

func TestFunctionLifecycleEndToEnd(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	createIn := &CreateFunctionInput{}
	createIn.Body.Name = "hello"
	createOut, err := s.handleCreateFunction(ctx, createIn)
	require.NoError(t, err)
	require.Equal(t, "hello", createOut.Body.Function.Name)
	require.Nil(t, createOut.Body.Function.LiveDeploymentID)

	fnID := createOut.Body.Function.ID

	deployIn := &CreateDeploymentInput{ID: fnID}
	deployIn.Body.Source = `let count=0; export default async()=>({result:'hello'+count++})`
	deployOut, err := s.handleCreateDeployment(ctx, deployIn)
	require.NoError(t, err)
	require.Equal(t, fnID, deployOut.Body.Deployment.FunctionID)

	want := []string{`{"result":"hello0"}`, `{"result":"hello1"}`, `{"result":"hello2"}`}
	for i, w := range want {
		invokeOut, err := s.handleInvokeFunction(ctx, &FunctionInvocationInput{ID: fnID})
		require.NoError(t, err, "invocation %d", i)
		require.JSONEq(t, w, string(invokeOut.Body), "invocation %d", i)
	}

	redeployIn := &CreateDeploymentInput{ID: fnID}
	redeployIn.Body.Source = `export default async()=>({result:'world'})`
	redeployOut, err := s.handleCreateDeployment(ctx, redeployIn)
	require.NoError(t, err)

	invokeOut, err := s.handleInvokeFunction(ctx, &FunctionInvocationInput{ID: fnID})
	require.NoError(t, err)
	require.JSONEq(t, `{"result":"world"}`, string(invokeOut.Body))

	getOut, err := s.handleGetFunction(ctx, &GetFunctionInput{ID: fnID})
	require.NoError(t, err)
	require.NotNil(t, getOut.Body.Function.LiveDeploymentID)
	require.Equal(t, redeployOut.Body.Deployment.ID, *getOut.Body.Function.LiveDeploymentID)
}

func TestInvokeFunctionWithNoLiveDeploymentIsNotFound(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	createOut, err := s.handleCreateFunction(ctx, &CreateFunctionInput{})
	require.NoError(t, err)

	_, err = s.handleInvokeFunction(ctx, &FunctionInvocationInput{ID: createOut.Body.Function.ID})
	require.Error(t, err)
	var statusErr huma.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.GetStatus())
}

func TestCreateDeploymentRejectsBrokenSource(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	createOut, err := s.handleCreateFunction(ctx, &CreateFunctionInput{})
	require.NoError(t, err)

	deployIn := &CreateDeploymentInput{ID: createOut.Body.Function.ID}
	deployIn.Body.Source = `export default 42;`
	_, err = s.handleCreateDeployment(ctx, deployIn)
	require.Error(t, err)

	got, err := s.handleGetFunction(ctx, &GetFunctionInput{ID: createOut.Body.Function.ID})
	require.NoError(t, err)
	require.Nil(t, got.Body.Function.LiveDeploymentID, "a failed deploy must not clobber the live pointer")
}

func TestCreateDeploymentRejectsBrokenSourceWith422(t *testing.T) {
	s := newTestServer(t)
	httpServer := httptest.NewServer(s.Handler())
	t.Cleanup(httpServer.Close)

	createResp, err := http.Post(httpServer.URL+"/functions", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	defer createResp.Body.Close()
	require.Equal(t, http.StatusOK, createResp.StatusCode)

	var created struct {
		Function struct {
			ID string `json:"id"`
		} `json:"function"`
	}
	require.NoError(t, json.NewDecoder(createResp.Body).Decode(&created))

	deployBody, err := json.Marshal(map[string]string{"source": "export default 42;"})
	require.NoError(t, err)

	deployResp, err := http.Post(
		httpServer.URL+"/functions/"+created.Function.ID+"/deployments",
		"application/json",
		bytes.NewReader(deployBody),
	)
	require.NoError(t, err)
	defer deployResp.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, deployResp.StatusCode)
}

func TestListFunctions(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleCreateFunction(ctx, &CreateFunctionInput{})
	require.NoError(t, err)
	_, err = s.handleCreateFunction(ctx, &CreateFunctionInput{})
	require.NoError(t, err)

	out, err := s.handleListFunctions(ctx, &struct{}{})
	require.NoError(t, err)
	require.Len(t, out.Body.Functions, 2)
}
