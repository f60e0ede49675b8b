package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/logger"
	"github.com/fixora/agentpulse/internal/usecase"
)

// SyncRunner launches and tracks sync runs
type SyncRunner interface {
	Start(ctx context.Context, req usecase.SyncRequest) (*usecase.Run, error)
	Lookup(id string) (*usecase.Run, bool)
	GetRun(ctx context.Context, id string) (*domain.SyncRun, error)
}

// SyncHandler handles HTTP requests for sync runs
type SyncHandler struct {
	runner SyncRunner
	logger logger.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(runner SyncRunner, log logger.Logger) *SyncHandler {
	return &SyncHandler{runner: runner, logger: log}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/sync", h.StartSync).Methods("POST")
	router.HandleFunc("/api/v1/sync/{id}", h.GetSyncRun).Methods("GET")
	router.HandleFunc("/api/v1/sync/{id}/events", h.StreamSyncEvents).Methods("GET")
}

type startSyncResponse struct {
	RunID  string          `json:"run_id"`
	Mode   domain.SyncMode `json:"mode"`
	Window domain.Window   `json:"window"`
}

// StartSync launches a sync in the background and returns its run ID
func (h *SyncHandler) StartSync(w http.ResponseWriter, r *http.Request) {
	var req usecase.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	run, err := h.runner.Start(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrSyncInProgress):
			writeError(w, http.StatusConflict, "sync_in_progress", err.Error())
		case errors.Is(err, usecase.ErrInvalidSyncMode), errors.Is(err, domain.ErrInvalidDateRange):
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		default:
			h.logger.Error(r.Context(), "Failed to start sync", err, map[string]interface{}{
				"mode": req.Mode,
			})
			writeError(w, http.StatusInternalServerError, "internal_error", "Failed to start sync")
		}
		return
	}

	writeSuccess(w, http.StatusAccepted, "Sync started", startSyncResponse{
		RunID:  run.ID,
		Mode:   run.Mode,
		Window: run.Window,
	})
}

// GetSyncRun returns the persisted checkpoint record of a run
func (h *SyncHandler) GetSyncRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	record, err := h.runner.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrSyncRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "Sync run not found")
			return
		}
		h.logger.Error(r.Context(), "Failed to load sync run", err, map[string]interface{}{
			"run_id": id,
		})
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to load sync run")
		return
	}

	writeSuccess(w, http.StatusOK, "Sync run retrieved", record)
}

// StreamSyncEvents streams a run's progress events over Server-Sent Events
// and closes with the run's result
func (h *SyncHandler) StreamSyncEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	run, ok := h.runner.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "Sync run not found")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported")
		return
	}

	// event streams stay open for the length of the run
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn(r.Context(), "Failed to clear write deadline for event stream", map[string]interface{}{
			"run_id": id,
			"error":  err.Error(),
		})
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range run.Progress() {
		if err := writeEvent(w, "progress", event); err != nil {
			return
		}
		flusher.Flush()
		if r.Context().Err() != nil {
			return
		}
	}

	select {
	case <-run.Done():
	case <-r.Context().Done():
		return
	}

	if err := writeEvent(w, "result", run.Wait()); err != nil {
		return
	}
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, name string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
