package commands

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"faasrun/api"
	"faasrun/engine"
	"faasrun/store"
)

const (
	defaultPort   = 8080
	defaultDBPath = "faasrun.db"
)

// newServeCmd creates the "serve" command, which runs the HTTP API
// server backed by the engine and metadata store. Unlike the other
// leaf commands it does not go through the HTTP client: it IS the
// server.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			port := defaultPort
			if v := os.Getenv("PORT"); v != "" {
				p, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("invalid PORT value %q: %w", v, err)
				}
				port = p
			}

			dbPath := defaultDBPath
			if v := os.Getenv("DB_PATH"); v != "" {
				dbPath = v
			}

			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			st, err := store.Open(context.Background(), dbPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer func() {
				if err := st.Close(); err != nil {
					log.Printf("error closing store: %v", err)
				}
			}()

			host := engine.NewHost()
			if err := host.Init(); err != nil {
				return fmt.Errorf("initializing engine host: %w", err)
			}
			defer host.Shutdown()

			metrics := engine.NewMetrics()
			engineCfg := engine.Config{Logger: logger}
			cache := engine.NewCache(host, engineCfg, metrics)
			defer cache.Shutdown()

			srv := api.NewServer(api.ServerConfig{
				Store:   st,
				Host:    host,
				Cache:   cache,
				Metrics: metrics,
				Config:  engineCfg,
				Port:    port,
			})

			errCh := make(chan error, 1)
			go func() {
				logger.Info("listening", "port", port)
				if err := srv.Start(); err != nil {
					errCh <- err
				}
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return fmt.Errorf("server error: %w", err)
			case <-sigCh:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}

	return cmd
}
