// Package api is the HTTP surface: a handful of routes that validate
// bodies and delegate to the engine and metadata store.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"faasrun/engine"
	"faasrun/store"
)

const ServiceName = "faasrun"

// ServerConfig bundles the collaborators a Server is built from.
type ServerConfig struct {
	Store   *store.Store
	Host    *engine.Host
	Cache   *engine.Cache
	Metrics *engine.Metrics
	Config  engine.Config
	Port    int
}

// Server is the HTTP surface over the engine and metadata store.
type Server struct {
	api        huma.API
	router     *http.ServeMux
	store      *store.Store
	host       *engine.Host
	cache      *engine.Cache
	metrics    *engine.Metrics
	cfg        engine.Config
	httpServer *http.Server
	port       int
}

// NewServer wires the huma API and the ambient /metrics route onto a
// single *http.ServeMux, matching wikilite's humago.New-on-a-plain-mux
// pattern.
func NewServer(cfg ServerConfig) *Server {
	router := http.NewServeMux()
	humaConfig := huma.DefaultConfig(ServiceName+" API", "1.0.0")
	humaAPI := humago.New(router, humaConfig)

	s := &Server{
		api:     humaAPI,
		router:  router,
		store:   cfg.Store,
		host:    cfg.Host,
		cache:   cfg.Cache,
		metrics: cfg.Metrics,
		cfg:     cfg.Config,
		port:    cfg.Port,
	}

	router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(ServiceName))
	})

	if s.metrics != nil {
		router.Handle("GET /metrics", s.metrics.Handler())
	}

	s.registerInvokeRoutes()
	s.registerFunctionRoutes()

	return s
}

// Start serves HTTP on the configured port. Blocks until the server
// stops or errors.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.router,
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the underlying mux, primarily for tests that want to
// drive requests without binding a real port.
func (s *Server) Handler() http.Handler {
	return s.router
}
