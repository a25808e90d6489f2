// Package api provides the HTTP administration endpoints for a crontab
// engine: job submission and cancellation, DLQ inspection and replay, queue
// throttling and aggregate statistics.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/xraph/crontab"
	"github.com/xraph/crontab/engine"
)

// API wires all HTTP handlers together for the crontab engine.
type API struct {
	eng    *engine.Engine
	logger *slog.Logger
}

// New creates an API from a crontab Engine.
func New(eng *engine.Engine, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{eng: eng, logger: logger}
}

// Handler returns the fully assembled http.Handler with all routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return mux
}

// RegisterRoutes registers all crontab API routes into mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Jobs. Names may contain slashes, so they are matched as the
	// remainder of the path.
	mux.HandleFunc("POST /v1/jobs", a.submitJob)
	mux.HandleFunc("DELETE /v1/jobs/{name...}", a.cancelJob)
	mux.HandleFunc("GET /v1/occurrences/{name...}", a.occurrences)

	// Dead letter queue.
	mux.HandleFunc("GET /v1/dlq", a.listDLQ)
	mux.HandleFunc("GET /v1/dlq/count", a.dlqCount)
	mux.HandleFunc("POST /v1/dlq/purge", a.purgeDLQ)
	mux.HandleFunc("GET /v1/dlq/{entryId}", a.getDLQ)
	mux.HandleFunc("POST /v1/dlq/{entryId}/replay", a.replayDLQ)

	// Queue throttling.
	mux.HandleFunc("PUT /v1/queues/{name}", a.setQueueConfig)

	// Stats.
	mux.HandleFunc("GET /v1/stats", a.stats)
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Debug("api: write response", slog.String("error", err.Error()))
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, crontab.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, crontab.ErrDLQNotFound):
		status = http.StatusNotFound
	default:
		a.logger.Error("api: request failed", slog.String("error", err.Error()))
	}
	a.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// intQuery parses an optional non-negative integer query parameter.
func intQuery(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer", name)
	}
	return n, nil
}

func defaultLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
