package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes a full load test: health check, generate, submit, fetch the
// leaderboard and verify it. Stats collected so far are returned on error.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	if err := cfg.Validate(); err != nil {
		return stats, err
	}

	log := logger.Get()
	log.Info(ctx, "starting quiz load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("results", cfg.NumResults),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Bool("verbose", cfg.Verbose))

	client := NewClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy")

	// Step 2: Generate results
	results, err := generateResults(ctx, cfg.NumResults, stats)
	if err != nil {
		return stats, fmt.Errorf("result generation failed: %w", err)
	}

	// Step 3: Submit concurrently
	stored := submitResults(ctx, cfg, client, results, stats)

	// Step 4: Read the leaderboard
	entries, err := client.Leaderboard(ctx)
	if err != nil {
		return stats, fmt.Errorf("leaderboard retrieval failed: %w", err)
	}
	stats.LeaderboardEntries = len(entries)

	// Step 5: Verify
	if err := Verify(entries); err != nil {
		return stats, fmt.Errorf("leaderboard verification failed: %w", err)
	}
	if err := VerifyCoverage(stored, entries); err != nil {
		return stats, fmt.Errorf("leaderboard verification failed: %w", err)
	}
	log.Info(ctx, "leaderboard verified", logger.Int("entries", len(entries)))
	logTopEntries(ctx, entries)

	// Step 6: Save generated results
	if cfg.OutputFile != "" {
		if err := saveResults(cfg.OutputFile, results); err != nil {
			log.Warn(ctx, "failed to save results to file", logger.Error(err))
		} else {
			log.Info(ctx, "results saved to file", logger.String("filename", cfg.OutputFile))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, stats)
	return stats, nil
}

func logTopEntries(ctx context.Context, entries []model.LeaderboardEntry) {
	const topN = 10
	n := min(topN, len(entries))
	for _, e := range entries[:n] {
		logger.Get().Info(ctx, "leaderboard entry",
			logger.Int("rank", e.Rank),
			logger.String("username", e.Username),
			logger.String("difficulty", string(e.Difficulty)),
			logger.Float64("efficiency", e.Efficiency))
	}
}

// saveResults writes the generated inputs as an indented JSON array.
func saveResults(filename string, results []model.QuizResultInput) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

func logFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", stats.SuccessRate()),
		logger.Float64("resultsPerSecond", stats.Throughput()))
}
