package api

import (
	"context"
	"net/http"

	service "github.com/codequest/leaderboard/internal/app"
)

// StatusDependencies defines the interface for storage status reporting.
type StatusDependencies interface {
	Status(ctx context.Context) service.StorageStatus
}

// StatusHandler handles storage status requests.
type StatusHandler struct {
	deps StatusDependencies
}

// NewStatusHandler creates a new status handler.
func NewStatusHandler(deps StatusDependencies) *StatusHandler {
	return &StatusHandler{deps: deps}
}

// HandleStatus handles GET /status requests.
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Status(r.Context()))
}
