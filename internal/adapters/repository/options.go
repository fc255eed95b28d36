package repository

import (
	"time"

	"github.com/codequest/leaderboard/pkg/logger"
)

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger used by the file store.
func WithFileLogger(l logger.Logger) FileOption {
	return func(s *FileStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source used for ids and timestamps.
func WithClock(now func() time.Time) FileOption {
	return func(s *FileStore) {
		if now != nil {
			s.now = now
		}
	}
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithPostgresLogger sets the logger used by the postgres store.
func WithPostgresLogger(l logger.Logger) PostgresOption {
	return func(s *PostgresStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// FailoverOption configures a FailoverStore.
type FailoverOption func(*FailoverStore)

// WithFailoverLogger sets the logger used to report failovers.
func WithFailoverLogger(l logger.Logger) FailoverOption {
	return func(s *FailoverStore) {
		if l != nil {
			s.logger = l
		}
	}
}
