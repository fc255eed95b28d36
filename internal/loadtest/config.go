// Package loadtest submits generated quiz results to a running leaderboard
// server and checks that the published leaderboard stays consistent.
package loadtest

import (
	"errors"
	"time"
)

// Defaults used when a Config field is left zero.
const (
	DefaultBaseURL = "http://localhost:9080"
	DefaultResults = 1000
	DefaultWorkers = 8
	DefaultTimeout = 10 * time.Second

	workerChannelMultiplier = 2
	percentageMultiplier    = 100
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid load test config")

// Config holds configuration for a load test run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumResults int           // Number of quiz results to generate
	Workers    int           // Number of concurrent submitters
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Optional JSON dump of the generated results
	Verbose    bool          // Log every failed submission
}

// Validate fills defaults and rejects impossible values.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Workers == 0 {
		c.Workers = DefaultWorkers
	}
	if c.NumResults < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("results must not be negative"))
	}
	if c.Workers < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("workers must be positive"))
	}
	if c.Timeout < 0 {
		return errors.Join(ErrInvalidConfig, errors.New("timeout must be positive"))
	}
	return nil
}

// Stats holds counters collected during a run.
type Stats struct {
	Generated          int
	Submitted          int
	Successful         int
	Failed             int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// SuccessRate is the percentage of submissions the server accepted.
func (s *Stats) SuccessRate() float64 {
	if s.Submitted == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Submitted) * percentageMultiplier
}

// Throughput is submissions per second over the whole run.
func (s *Stats) Throughput() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Submitted) / s.Duration.Seconds()
}
