package api

import (
	"context"
	"errors"
	"net/http"

	repository "github.com/codequest/leaderboard/internal/adapters/repository"
	"github.com/codequest/leaderboard/internal/domain/model"
)

// LeaderboardDependencies defines the interface for leaderboard operations
type LeaderboardDependencies interface {
	List(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// LeaderboardHandler handles leaderboard requests
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetLeaderboard handles GET /leaderboard requests
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	entries, err := h.deps.List(r.Context())
	if err != nil {
		if errors.Is(err, repository.ErrPersistence) {
			writeError(w, http.StatusServiceUnavailable, "leaderboard_unavailable", NewKind(op, ErrUnavailable))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", NewKind(op, ErrInternal))
		return
	}
	if entries == nil {
		entries = []model.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
