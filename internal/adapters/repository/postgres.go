package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/internal/domain/scoring"
	"github.com/codequest/leaderboard/pkg/logger"
	"github.com/codequest/leaderboard/pkg/metrics"
)

// Postgres error codes that mean the expected schema is not there.
const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
	pgInvalidSchema   = "3F000"
)

// Pool defaults.
const (
	defaultMaxConns       = 10
	defaultMinConns       = 0
	defaultConnectTimeout = 5 * time.Second
	defaultMaxLifetime    = 30 * time.Minute
)

const (
	insertResultSQL = `
		INSERT INTO quiz_results (username, topics, difficulty, xp_points, time_in_seconds, questions_count, correct_answers)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, created_at
	`

	selectViewSQL = `
		SELECT id::text, username, topics, difficulty, xp_points, time_in_seconds,
		       questions_count, correct_answers, created_at, efficiency::float8, rank
		FROM leaderboard
		ORDER BY rank ASC
		LIMIT $1
	`

	selectResultsSQL = `
		SELECT id::text, username, topics, difficulty, xp_points, time_in_seconds,
		       questions_count, correct_answers, created_at
		FROM quiz_results
		ORDER BY created_at ASC, id ASC
	`

	inspectSchemaSQL = `
		SELECT to_regclass('quiz_results') IS NOT NULL,
		       to_regclass('leaderboard') IS NOT NULL
	`
)

// dbConn is the subset of *pgxpool.Pool used by PostgresStore.
type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	ConnectTimeout time.Duration
	MaxLifetime    time.Duration
}

// SchemaStatus reports which database objects exist.
type SchemaStatus struct {
	ResultsTable    bool `json:"resultsTable"`
	LeaderboardView bool `json:"leaderboardView"`
}

// PostgresStore is the primary Store, backed by a quiz_results table and an
// optional leaderboard view.
type PostgresStore struct {
	db     dbConn
	close  func()
	logger logger.Logger
}

// NewPostgresStore builds a connection pool for cfg. The pool connects
// lazily, so an unreachable server is reported by Ping or the first query,
// not here.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, opts ...PostgresOption) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres: empty dsn: %w", ErrBackendUnavailable)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	poolConfig.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	poolConfig.MinConns = defaultMinConns

	poolConfig.MaxConnLifetime = defaultMaxLifetime
	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	}

	poolConfig.ConnConfig.ConnectTimeout = defaultConnectTimeout
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}

	s := newPostgresStore(pool, opts...)
	s.close = pool.Close
	return s, nil
}

func newPostgresStore(db dbConn, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{
		db:     db,
		close:  func() {},
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Named.
func (s *PostgresStore) Name() string { return BackendPostgres }

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return classify("ping", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	s.close()
	return nil
}

// Insert stores r in quiz_results. The database assigns id and created_at.
func (s *PostgresStore) Insert(ctx context.Context, r model.QuizResult) (model.QuizResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("submit", BackendPostgres, float64(time.Since(start).Microseconds())/1000)
	}()

	topics := r.Topics
	if topics == nil {
		topics = []string{}
	}

	err := s.db.QueryRow(ctx, insertResultSQL,
		r.Username,
		topics,
		string(r.Difficulty),
		r.XPPoints,
		r.TimeInSeconds,
		r.QuestionsCount,
		r.CorrectAnswers,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return model.QuizResult{}, classify("insert quiz result", err)
	}
	r.Topics = topics
	return r, nil
}

// Query reads the precomputed leaderboard view. When the view is missing,
// fails or is empty, it ranks the raw quiz_results rows locally.
func (s *PostgresStore) Query(ctx context.Context) ([]model.LeaderboardEntry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreLatency("list", BackendPostgres, float64(time.Since(start).Microseconds())/1000)
	}()

	entries, err := s.queryView(ctx)
	switch {
	case err != nil:
		s.logger.Debug(ctx, "leaderboard view unavailable, ranking quiz_results directly", logger.Error(err))
	case len(entries) > 0:
		return scoring.Rerank(entries), nil
	}

	results, err := s.queryResults(ctx)
	if err != nil {
		return nil, err
	}
	return scoring.Rank(results), nil
}

func (s *PostgresStore) queryView(ctx context.Context) ([]model.LeaderboardEntry, error) {
	rows, err := s.db.Query(ctx, selectViewSQL, scoring.MaxEntries)
	if err != nil {
		return nil, classify("query leaderboard view", err)
	}
	defer rows.Close()

	entries := make([]model.LeaderboardEntry, 0, scoring.MaxEntries)
	for rows.Next() {
		var (
			e          model.LeaderboardEntry
			difficulty string
			rank       int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.Username,
			&e.Topics,
			&difficulty,
			&e.XPPoints,
			&e.TimeInSeconds,
			&e.QuestionsCount,
			&e.CorrectAnswers,
			&e.CreatedAt,
			&e.Efficiency,
			&rank,
		); err != nil {
			return nil, classify("scan leaderboard view", err)
		}
		e.Difficulty = model.Difficulty(difficulty)
		e.Rank = int(rank)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate leaderboard view", err)
	}
	return entries, nil
}

func (s *PostgresStore) queryResults(ctx context.Context) ([]model.QuizResult, error) {
	rows, err := s.db.Query(ctx, selectResultsSQL)
	if err != nil {
		return nil, classify("query quiz results", err)
	}
	defer rows.Close()

	var results []model.QuizResult
	for rows.Next() {
		var (
			r          model.QuizResult
			difficulty string
		)
		if err := rows.Scan(
			&r.ID,
			&r.Username,
			&r.Topics,
			&difficulty,
			&r.XPPoints,
			&r.TimeInSeconds,
			&r.QuestionsCount,
			&r.CorrectAnswers,
			&r.CreatedAt,
		); err != nil {
			return nil, classify("scan quiz result", err)
		}
		r.Difficulty = model.Difficulty(difficulty)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate quiz results", err)
	}
	return results, nil
}

// Inspect reports whether the results table and the leaderboard view exist.
func (s *PostgresStore) Inspect(ctx context.Context) (SchemaStatus, error) {
	var st SchemaStatus
	if err := s.db.QueryRow(ctx, inspectSchemaSQL).Scan(&st.ResultsTable, &st.LeaderboardView); err != nil {
		return SchemaStatus{}, classify("inspect schema", err)
	}
	return st, nil
}

// classify maps a pgx error onto the package's error kinds.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUndefinedTable, pgUndefinedColumn, pgInvalidSchema:
			return fmt.Errorf("postgres: %s: %w: %s", op, ErrSchemaMissing, pgErr.Message)
		}
	}
	return fmt.Errorf("postgres: %s: %w: %w", op, ErrBackendUnavailable, err)
}
