package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/fixora/agentpulse/internal/domain"
	"github.com/fixora/agentpulse/internal/usecase"
)

// MetricsReader is the read side consumed by the dashboard endpoints
type MetricsReader interface {
	GetLatestMetrics(ctx context.Context, window *domain.Window) usecase.LatestMetrics
	ListAgents(ctx context.Context) ([]*domain.Agent, error)
}

// MetricsHandler handles HTTP requests for agent metrics
type MetricsHandler struct {
	reader MetricsReader
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(reader MetricsReader) *MetricsHandler {
	return &MetricsHandler{reader: reader}
}

// RegisterRoutes registers metrics routes
func (h *MetricsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/metrics/latest", h.GetLatestMetrics).Methods("GET")
	router.HandleFunc("/api/v1/agents", h.ListAgents).Methods("GET")
}

// GetLatestMetrics returns the latest snapshot per agent and the team average.
// start and end are optional RFC 3339 timestamps bounding the calculation time.
func (h *MetricsHandler) GetLatestMetrics(w http.ResponseWriter, r *http.Request) {
	window, err := parseWindowQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
		return
	}

	latest := h.reader.GetLatestMetrics(r.Context(), window)
	writeSuccess(w, http.StatusOK, "Latest metrics retrieved", latest)
}

// ListAgents returns the tracked agents
func (h *MetricsHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.reader.ListAgents(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to list agents")
		return
	}
	writeSuccess(w, http.StatusOK, "Agents retrieved", agents)
}

func parseWindowQuery(r *http.Request) (*domain.Window, error) {
	startRaw := r.URL.Query().Get("start")
	endRaw := r.URL.Query().Get("end")
	if startRaw == "" && endRaw == "" {
		return nil, nil
	}
	if startRaw == "" || endRaw == "" {
		return nil, errWindowIncomplete
	}

	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return nil, errWindowFormat
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return nil, errWindowFormat
	}

	window, err := domain.NewWindow(start, end)
	if err != nil {
		return nil, err
	}
	return &window, nil
}

var (
	errWindowIncomplete = domain.NewDomainError("start and end must be given together")
	errWindowFormat     = domain.NewDomainError("start and end must be RFC 3339 timestamps")
)
