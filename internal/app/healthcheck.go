package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/compreg/internal/snapshot"
)

// routes serves /health, /entities (a JSON or ?format=yaml dump) and
// /reload (POST).
func (a *App) routes(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /entities", a.entitiesHandler)
	mux.HandleFunc("POST /reload", func(w http.ResponseWriter, r *http.Request) {
		a.reloadHandler(ctx, w, r)
	})
	return mux
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) entitiesHandler(w http.ResponseWriter, r *http.Request) {
	format := snapshot.FormatJSON
	if r.URL.Query().Get("format") == string(snapshot.FormatYAML) {
		format = snapshot.FormatYAML
	}
	if err := a.dump(w, format); err != nil {
		a.logger.Error("Entity dump failed.", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (a *App) reloadHandler(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	a.logger.Info("Reload requested.", "remote_addr", r.RemoteAddr)
	result, err := a.Reload(ctx)
	if err != nil {
		a.logger.Error("Reload failed.", "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	fmt.Fprintf(w, "spawned=%d despawned=%d failed=%d\n", len(result.Entities), result.Despawned, len(result.Failures))
}

// healthCheckServer initializes and runs the health check HTTP server.
func (a *App) healthCheckServer(ctx context.Context) {
	a.logger.Debug("Configuring health check server.")
	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	a.httpServer = &http.Server{
		Addr:              addr,
		Handler:           a.routes(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		// ListenAndServe returns ErrServerClosed on graceful shutdown.
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthCheckServer(ctx context.Context) error {
	if a.httpServer == nil {
		a.logger.Debug("Health check server was not running.")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	a.logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	a.logger.Debug("Health check server shut down gracefully.")
	return nil
}
