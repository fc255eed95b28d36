// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	repository "github.com/codequest/leaderboard/internal/adapters/repository"
	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/internal/domain/scoring"
	"github.com/codequest/leaderboard/pkg/logger"
	"github.com/codequest/leaderboard/pkg/metrics"
)

// Service errors.
var (
	// ErrNotStarted is returned by operations called before Start.
	ErrNotStarted = errors.New("service not started")
	// ErrNoDatabase is returned by Migrate when no migratable primary is configured.
	ErrNoDatabase = errors.New("no database configured")
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultStatusTimeout  = 3 * time.Second
)

// StorageStatus describes which storage backends are in use.
type StorageStatus struct {
	PrimaryConfigured bool     `json:"primaryConfigured"`
	PrimaryReachable  bool     `json:"primaryReachable"`
	TablesFound       []string `json:"tablesFound"`
	ViewsFound        []string `json:"viewsFound"`
	FilePath          string   `json:"filePath"`
	UsingFileStorage  bool     `json:"usingFileStorage"`
	Error             string   `json:"error,omitempty"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

type inspector interface {
	Inspect(ctx context.Context) (repository.SchemaStatus, error)
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// Service records quiz results and serves the leaderboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	primary  repository.Store
	file     *repository.FileStore
	failover *repository.FailoverStore

	// Configuration
	databaseURL     string
	maxConns        int32
	connectTimeout  time.Duration
	autoMigrate     bool
	filePath        string
	primaryOverride repository.Store
	now             func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDatabaseURL sets the PostgreSQL DSN of the primary store.
// An empty DSN runs the service on the file store alone.
func WithDatabaseURL(dsn string) Option {
	return func(s *Service) {
		s.databaseURL = dsn
	}
}

// WithDatabaseMaxConns sets the primary pool size.
func WithDatabaseMaxConns(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConns = int32(n) //nolint:gosec // bounded by config validation
		}
	}
}

// WithConnectTimeout sets the primary connect timeout.
func WithConnectTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithAutoMigrate applies schema migrations on Start.
func WithAutoMigrate(enabled bool) Option {
	return func(s *Service) {
		s.autoMigrate = enabled
	}
}

// WithFileStorePath sets the location of the local JSON store.
func WithFileStorePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.filePath = path
		}
	}
}

// WithPrimaryStore replaces the PostgreSQL primary with st.
func WithPrimaryStore(st repository.Store) Option {
	return func(s *Service) {
		s.primaryOverride = st
	}
}

// WithClock overrides the time source used to stamp results.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		connectTimeout: defaultConnectTimeout,
		filePath:       repository.DefaultFilePath,
		now:            time.Now,
		logger:         nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the stores. A primary that cannot be created leaves the
// service running on the file store alone.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	s.file = repository.NewFileStore(s.filePath,
		repository.WithFileLogger(s.logger.Named("filestore")),
	)

	s.primary = s.openPrimary(ctx)

	s.failover = repository.NewFailoverStore(s.primary, s.file,
		repository.WithFailoverLogger(s.logger.Named("failover")),
	)

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Bool("primary", s.primary != nil),
		logger.String("fileStore", s.filePath),
	)

	return nil
}

func (s *Service) openPrimary(ctx context.Context) repository.Store {
	if s.primaryOverride != nil {
		return s.primaryOverride
	}
	if s.databaseURL == "" {
		s.logger.Warn(ctx, "no database configured, using file storage only")
		metrics.UpdatePrimaryUp(false)
		return nil
	}

	pg, err := repository.NewPostgresStore(ctx, repository.PostgresConfig{
		DSN:            s.databaseURL,
		MaxConns:       s.maxConns,
		ConnectTimeout: s.connectTimeout,
	}, repository.WithPostgresLogger(s.logger.Named("postgres")))
	if err != nil {
		s.logger.Error(ctx, "failed to configure postgres, using file storage only", logger.Error(err))
		metrics.UpdatePrimaryUp(false)
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()
	if err := pg.Ping(pingCtx); err != nil {
		// Keep the store: each call retries the primary before failing over.
		s.logger.Warn(ctx, "postgres unreachable at startup", logger.Error(err))
		metrics.UpdatePrimaryUp(false)
		return pg
	}
	metrics.UpdatePrimaryUp(true)

	if s.autoMigrate {
		if err := pg.Migrate(ctx); err != nil {
			s.logger.Error(ctx, "schema migration failed", logger.Error(err))
		}
	}
	return pg
}

// Stop releases the primary connection pool.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping leaderboard service...")

	if s.primary != nil && s.primary != s.primaryOverride {
		if closer, ok := s.primary.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}

	s.started = false
	s.logger.Info(context.Background(), "leaderboard service stopped")
}

func (s *Service) store() (*repository.FailoverStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.failover, nil
}

// Submit normalizes in and persists it on the first backend that accepts it.
func (s *Service) Submit(ctx context.Context, in model.QuizResultInput) (model.QuizResult, error) {
	st, err := s.store()
	if err != nil {
		return model.QuizResult{}, err
	}

	topics := make([]string, len(in.Topics))
	copy(topics, in.Topics)

	r := model.QuizResult{
		Username:       in.Username,
		Topics:         topics,
		Difficulty:     in.Difficulty,
		XPPoints:       in.XPPoints,
		TimeInSeconds:  in.TimeInSeconds,
		QuestionsCount: in.QuestionsCount,
		CorrectAnswers: scoring.NormalizeCorrectAnswers(in.CorrectAnswers),
		CreatedAt:      s.now().UTC(),
	}

	stored, err := st.Insert(ctx, r)
	if err != nil {
		return model.QuizResult{}, err
	}

	s.logger.Debug(ctx, "quiz result saved",
		logger.String("id", stored.ID),
		logger.String("username", stored.Username),
		logger.Float64("efficiency", scoring.Efficiency(stored.XPPoints, stored.TimeInSeconds, stored.Difficulty)),
	)
	return stored, nil
}

// List returns the ranked leaderboard.
func (s *Service) List(ctx context.Context) ([]model.LeaderboardEntry, error) {
	st, err := s.store()
	if err != nil {
		return nil, err
	}

	entries, err := st.Query(ctx)
	if err != nil {
		return nil, err
	}
	metrics.UpdateLeaderboardSize(len(entries))
	return entries, nil
}

// Status reports which backends are configured and reachable and which
// database objects exist.
func (s *Service) Status(ctx context.Context) StorageStatus {
	s.mu.RLock()
	primary := s.primary
	s.mu.RUnlock()

	status := StorageStatus{
		PrimaryConfigured: primary != nil,
		TablesFound:       []string{},
		ViewsFound:        []string{},
		FilePath:          s.filePath,
		UsingFileStorage:  true,
	}
	if primary == nil {
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, defaultStatusTimeout)
	defer cancel()

	status.PrimaryReachable = true
	if p, ok := primary.(pinger); ok {
		if err := p.Ping(ctx); err != nil {
			status.PrimaryReachable = false
			status.Error = err.Error()
			metrics.UpdatePrimaryUp(false)
			return status
		}
	}
	metrics.UpdatePrimaryUp(true)

	i, ok := primary.(inspector)
	if !ok {
		status.UsingFileStorage = false
		return status
	}

	schema, err := i.Inspect(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}
	if schema.ResultsTable {
		status.TablesFound = append(status.TablesFound, "quiz_results")
	}
	if schema.LeaderboardView {
		status.ViewsFound = append(status.ViewsFound, "leaderboard")
	}
	status.UsingFileStorage = !schema.ResultsTable
	return status
}

// Migrate applies schema migrations to the primary store.
func (s *Service) Migrate(ctx context.Context) error {
	s.mu.RLock()
	primary := s.primary
	s.mu.RUnlock()

	m, ok := primary.(migrator)
	if !ok {
		return ErrNoDatabase
	}
	return m.Migrate(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"primaryConfigured": s.primary != nil,
		"fileStorePath":     s.filePath,
	}

	if s.started {
		fs := s.failover.Stats()
		stats["primaryWrites"] = fs.PrimaryWrites
		stats["secondaryWrites"] = fs.SecondaryWrites
		stats["failovers"] = fs.Failovers
		stats["persistenceErrors"] = fs.PersistenceErrors
		stats["lastBackend"] = fs.LastBackend
	}

	return stats
}
