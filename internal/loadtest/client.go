package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/codequest/leaderboard/internal/domain/model"
	"github.com/codequest/leaderboard/pkg/logger"
)

const progressInterval = time.Second

// Client talks to the leaderboard HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health calls GET /healthz and expects 200.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Submit posts one result to /results and returns the stored record.
func (c *Client) Submit(ctx context.Context, in model.QuizResultInput) (model.QuizResult, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return model.QuizResult{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/results", bytes.NewReader(body))
	if err != nil {
		return model.QuizResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return model.QuizResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusCreated {
		return model.QuizResult{}, statusError(resp)
	}

	var stored model.QuizResult
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return model.QuizResult{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return stored, nil
}

// Leaderboard fetches GET /leaderboard.
func (c *Client) Leaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/leaderboard", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var entries []model.LeaderboardEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return entries, nil
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(body))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	if err := resp.Body.Close(); err != nil {
		logger.Get().Debug(context.Background(), "failed to close response body", logger.Error(err))
	}
}

// submitResults posts results through a pool of workers.
// It returns the records the server stored.
func submitResults(ctx context.Context, cfg *Config, client *Client, results []model.QuizResultInput, stats *Stats) []model.QuizResult {
	log := logger.Get()
	log.Info(ctx, "submitting quiz results",
		logger.Int("count", len(results)),
		logger.Int("workers", cfg.Workers))

	var (
		submitted  int64
		successful int64
		failed     int64
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "submission progress",
					logger.Int("submitted", int(atomic.LoadInt64(&submitted))),
					logger.Int("total", len(results)),
					logger.Int("failed", int(atomic.LoadInt64(&failed))))
			}
		}
	}()

	var (
		mu     sync.Mutex
		stored = make([]model.QuizResult, 0, len(results))
	)

	jobs := make(chan model.QuizResultInput, cfg.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				r, err := client.Submit(ctx, in)
				atomic.AddInt64(&submitted, 1)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "submission failed",
							logger.String("username", in.Username),
							logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&successful, 1)
				mu.Lock()
				stored = append(stored, r)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, in := range results {
			select {
			case <-ctx.Done():
				return
			case jobs <- in:
			}
		}
	}()

	wg.Wait()
	close(done)

	stats.Submitted = int(atomic.LoadInt64(&submitted))
	stats.Successful = int(atomic.LoadInt64(&successful))
	stats.Failed = int(atomic.LoadInt64(&failed))

	log.Info(ctx, "submission completed",
		logger.Int("successful", stats.Successful),
		logger.Int("failed", stats.Failed))
	return stored
}
