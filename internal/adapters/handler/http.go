// Package handler serves the operational endpoints: liveness, readiness and
// Prometheus metrics.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency that must answer before the process reports ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

type OpsHandler struct {
	gatherer prometheus.Gatherer
	checks   map[string]Pinger
}

func NewOpsHandler(gatherer prometheus.Gatherer, checks map[string]Pinger) *OpsHandler {
	return &OpsHandler{
		gatherer: gatherer,
		checks:   checks,
	}
}

func (h *OpsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /readyz", h.HandleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}

func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OpsHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		respondWithError(w, http.StatusServiceUnavailable, &APIError{
			Code:    "NOT_READY",
			Message: "dependencies unavailable",
			Details: failed,
		})
		return
	}
	respondWithData(w, http.StatusOK, map[string]string{"status": "ready"})
}
