// Package repository persists quiz results and reads them back as a ranked leaderboard.
package repository

import (
	"context"

	"github.com/codequest/leaderboard/internal/domain/model"
)

// Backend names used in logs, metrics and status reports.
const (
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// Store provides write-once/read-all access to quiz results.
type Store interface {
	// Insert persists r and returns the stored record with its assigned id.
	Insert(ctx context.Context, r model.QuizResult) (model.QuizResult, error)

	// Query returns the ranked leaderboard: efficiency descending, dense
	// ranks starting at 1, at most scoring.MaxEntries entries. An empty
	// store yields an empty, non-nil slice.
	Query(ctx context.Context) ([]model.LeaderboardEntry, error)
}

// Named is implemented by stores that report which backend served a call.
type Named interface {
	Name() string
}

func backendName(s Store) string {
	if n, ok := s.(Named); ok {
		return n.Name()
	}
	return "unknown"
}
