package repository

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/pkg/logger"
	"github.com/codequest/leaderboard/pkg/metrics"
)

// Operation names used in errors, logs and metrics.
const (
	OpSubmit = "submit"
	OpList   = "list"
)

// FailoverStats is a snapshot of FailoverStore counters.
type FailoverStats struct {
	PrimaryWrites     int64  `json:"primaryWrites"`
	SecondaryWrites   int64  `json:"secondaryWrites"`
	Failovers         int64  `json:"failovers"`
	PersistenceErrors int64  `json:"persistenceErrors"`
	LastBackend       string `json:"lastBackend"`
}

// FailoverStore tries the primary store first and falls back to the
// secondary on any primary failure. A nil primary means secondary only.
type FailoverStore struct {
	primary   Store
	secondary Store
	logger    logger.Logger

	primaryWrites     atomic.Int64
	secondaryWrites   atomic.Int64
	failovers         atomic.Int64
	persistenceErrors atomic.Int64
	lastBackend       atomic.Value
}

// NewFailoverStore composes primary and secondary. secondary must not be nil.
func NewFailoverStore(primary, secondary Store, opts ...FailoverOption) *FailoverStore {
	s := &FailoverStore{
		primary:   primary,
		secondary: secondary,
		logger:    logger.Nop(),
	}
	s.lastBackend.Store("")
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasPrimary reports whether a primary store is configured.
func (s *FailoverStore) HasPrimary() bool { return s.primary != nil }

// Insert writes r to the first backend that accepts it.
func (s *FailoverStore) Insert(ctx context.Context, r model.QuizResult) (model.QuizResult, error) {
	var primaryErr error
	if s.primary != nil {
		stored, err := s.primary.Insert(ctx, r)
		if err == nil {
			s.accepted(backendName(s.primary))
			s.primaryWrites.Add(1)
			metrics.UpdatePrimaryUp(true)
			return stored, nil
		}
		primaryErr = err
		s.failover(ctx, OpSubmit, err)
	}

	stored, err := s.secondary.Insert(ctx, r)
	if err != nil {
		return model.QuizResult{}, s.persistenceError(ctx, OpSubmit, primaryErr, err)
	}
	s.accepted(backendName(s.secondary))
	s.secondaryWrites.Add(1)
	return stored, nil
}

// Query reads the leaderboard from the primary, or from the secondary when
// the primary fails. An empty primary result is returned as is.
func (s *FailoverStore) Query(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var primaryErr error
	if s.primary != nil {
		entries, err := s.primary.Query(ctx)
		if err == nil {
			s.lastBackend.Store(backendName(s.primary))
			metrics.UpdatePrimaryUp(true)
			return nonNil(entries), nil
		}
		primaryErr = err
		s.failover(ctx, OpList, err)
	}

	entries, err := s.secondary.Query(ctx)
	if err != nil {
		if errors.Is(err, ErrMalformedData) {
			metrics.RecordMalformedRead()
		}
		return nil, s.persistenceError(ctx, OpList, primaryErr, err)
	}
	s.lastBackend.Store(backendName(s.secondary))
	return nonNil(entries), nil
}

// Stats returns a snapshot of the store counters.
func (s *FailoverStore) Stats() FailoverStats {
	last, _ := s.lastBackend.Load().(string)
	return FailoverStats{
		PrimaryWrites:     s.primaryWrites.Load(),
		SecondaryWrites:   s.secondaryWrites.Load(),
		Failovers:         s.failovers.Load(),
		PersistenceErrors: s.persistenceErrors.Load(),
		LastBackend:       last,
	}
}

func (s *FailoverStore) accepted(backend string) {
	s.lastBackend.Store(backend)
	metrics.RecordSubmission(backend)
}

func (s *FailoverStore) failover(ctx context.Context, op string, err error) {
	s.failovers.Add(1)
	metrics.RecordFailover(op)
	metrics.UpdatePrimaryUp(false)
	s.logger.Warn(ctx, "primary store failed, using secondary",
		logger.String("operation", op),
		logger.String("primary", backendName(s.primary)),
		logger.String("secondary", backendName(s.secondary)),
		logger.String("kind", Kind(err)),
		logger.Error(err),
	)
}

func (s *FailoverStore) persistenceError(ctx context.Context, op string, primaryErr, secondaryErr error) error {
	s.persistenceErrors.Add(1)
	metrics.RecordPersistenceError(op)
	perr := &PersistenceError{Op: op, Primary: primaryErr, Secondary: secondaryErr}
	s.logger.Error(ctx, "no store could serve the request", logger.String("operation", op), logger.Error(perr))
	return perr
}

func nonNil(entries []model.LeaderboardEntry) []model.LeaderboardEntry {
	if entries == nil {
		return []model.LeaderboardEntry{}
	}
	return entries
}
