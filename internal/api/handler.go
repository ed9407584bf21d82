package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mgiordano/gridlock/internal/config"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	runs   *Manager
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(runs *Manager, loader *config.Loader) http.Handler {
	h := &Handler{runs: runs, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/runs", h.startRun)
	h.mux.HandleFunc("GET /v1/runs", h.listRuns)
	h.mux.HandleFunc("GET /v1/runs/{id}", h.getRun)
	h.mux.HandleFunc("GET /v1/runs/{id}/snapshot", h.getSnapshot)
	h.mux.HandleFunc("DELETE /v1/runs/{id}", h.cancelRun)
	h.mux.HandleFunc("POST /v1/config/reload", h.reloadConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// POST /v1/runs — start a simulation run with optional overrides.
func (h *Handler) startRun(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
			return
		}
	}
	info, err := h.runs.Start(req)
	if err != nil {
		status := http.StatusInternalServerError
		var se *startError
		if errors.As(err, &se) {
			status = se.status
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, info)
}

// GET /v1/runs — list all runs, newest first.
func (h *Handler) listRuns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"runs": h.runs.List()})
}

// GET /v1/runs/{id} — run status and aggregate statistics.
func (h *Handler) getRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run.info())
}

// GET /v1/runs/{id}/snapshot — latest committed tick snapshot.
func (h *Handler) getSnapshot(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   r.PathValue("id"),
		"vehicles": run.Snapshot(),
	})
}

// DELETE /v1/runs/{id} — cancel a run cleanly between ticks.
func (h *Handler) cancelRun(w http.ResponseWriter, r *http.Request) {
	if err := h.runs.Cancel(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": true})
}

// POST /v1/config/reload — re-read the config; applies to future runs.
func (h *Handler) reloadConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.loader.Reload()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := config.Validate(cfg); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reloaded": true})
}

// GET /healthz — liveness probe.
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
