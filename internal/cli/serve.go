package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/tutor"
	httpAdapter "github.com/aretw0/tutor/pkg/adapters/http"
)

// ShutdownTimeout bounds graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

// NewHTTPHandler exposes the stack over HTTP with /metrics mounted.
func NewHTTPHandler(stack *Stack) http.Handler {
	return httpAdapter.NewHandler(stack.Engine,
		httpAdapter.WithMetricsHandler(stack.Metrics.Handler()),
		httpAdapter.WithVersion(tutor.Version),
		httpAdapter.WithLogger(stack.Logger),
	)
}

// Serve runs the HTTP API on addr until ctx is done.
func Serve(ctx context.Context, stack *Stack, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHTTPHandler(stack),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		stack.Logger.Info("Starting tutor server", "address", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		stack.Logger.Info("Start shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown did not complete in %v: %w", ShutdownTimeout, err)
		}
		stack.Logger.Info("Server stopped gracefully")
		return nil
	}
}
