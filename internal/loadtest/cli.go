package loadtest

import "os"

// ShowHelp prints usage information for the load tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`CodeQuest Leaderboard Load Tool
===============================

Submits generated quiz results to a running leaderboard server and checks
that the published leaderboard is ranked and scored consistently.

Usage:
  go run ./cmd/quiz-load [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -results int
        Number of quiz results to generate and submit (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -output string
        Write the generated results to this JSON file
  -log-format string
        Log format, json or text (default "text")
  -verbose
        Log every failed submission
  -help
        Show this help message

Examples:
  # Test with default settings
  go run ./cmd/quiz-load

  # Heavier run against another host
  go run ./cmd/quiz-load -results 20000 -workers 32 -url http://leaderboard:9080
`)
}
