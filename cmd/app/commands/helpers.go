// Package commands contains CLI command implementations for the guard
// application.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"

	"github.com/mcpdeck/guard/internal/app"
)

// CloseContainer closes all resources in the container and logs any errors.
func CloseContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// ServeMetrics exposes the Prometheus scrape endpoint while a long-running
// command executes. The returned function stops the listener.
func ServeMetrics(container *app.Container, logger *slog.Logger) (func(), error) {
	cfg := container.Config()
	if !cfg.MetricsEnabled {
		return func() {}, nil
	}

	provider, err := container.MetricsProvider()
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", provider.Handler())

	server := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", slog.Any("error", err))
		}
	}

	return stop, nil
}
