// Package ops exposes the worker's operational HTTP surface: liveness,
// readiness and Prometheus metrics.
package ops

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crewdeck-app/crewdeck-backend/pkg/config"
	"github.com/crewdeck-app/crewdeck-backend/pkg/logger"
)

const readyCheckTimeout = 10 * time.Second

// ReadyCheck reports whether one named dependency is reachable.
type ReadyCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// NewRouter builds the ops router.
func NewRouter(cfg *config.Config, logg *logger.Logger, registry *prometheus.Registry, checks []ReadyCheck) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "env": cfg.App.Env})
	})

	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), readyCheckTimeout)
		defer cancel()
		for _, check := range checks {
			if err := check.Check(ctx); err != nil {
				logg.Error(ctx, check.Name+" readiness check failed", err)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
					"failed": check.Name,
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return r
}

// Serve runs the ops server until the context is canceled.
func Serve(ctx context.Context, cfg *config.Config, logg *logger.Logger, handler http.Handler) error {
	server := &http.Server{
		Addr:              ":" + cfg.Ops.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logg.Info(ctx, "ops server listening on :"+cfg.Ops.Port)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
