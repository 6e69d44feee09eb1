// Package httpapi serves the upload form, the processing endpoint and the ops
// endpoints.
package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/metrics"
	"github.com/Vinay-Daripelly/Jira-Automation-Tools/internal/pipeline"
)

//go:embed static/index.html
var staticFS embed.FS

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// Router builds HTTP handlers for /, /process and /ops.
type Router struct {
	runner         Runner
	metrics        *metrics.Metrics
	maxUploadBytes int64
	healthy        func() bool
}

// NewRouter returns a Router. healthy may be nil, in which case /ops/health
// always reports ready.
func NewRouter(runner Runner, m *metrics.Metrics, maxUploadBytes int64, healthy func() bool) *Router {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 5 << 20
	}
	return &Router{runner: runner, metrics: m, maxUploadBytes: maxUploadBytes, healthy: healthy}
}

// Handler returns the routed handler wrapped in request-id and recovery
// middleware.
func (r *Router) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", r.index).Methods(http.MethodGet)
	router.HandleFunc("/process", r.process).Methods(http.MethodPost)
	router.HandleFunc("/ops/health", r.health).Methods(http.MethodGet)
	router.HandleFunc("/ops/metrics", r.metricsSnapshot).Methods(http.MethodGet)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return RequestID(Recovery(router))
}

func (r *Router) index(w http.ResponseWriter, req *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "form unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	if r.healthy != nil && !r.healthy() {
		writeError(w, http.StatusServiceUnavailable, "inbox queue not running")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) metricsSnapshot(w http.ResponseWriter, req *http.Request) {
	if r.metrics == nil {
		respondJSON(w, http.StatusOK, metrics.Snapshot{})
		return
	}
	respondJSON(w, http.StatusOK, r.metrics.Snapshot())
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("write json", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
