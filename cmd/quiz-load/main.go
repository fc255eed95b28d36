package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/codequest/leaderboard/internal/loadtest"
	"github.com/codequest/leaderboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", loadtest.DefaultBaseURL, "Base URL of the service")
		numResults = flag.Int("results", loadtest.DefaultResults, "Number of quiz results to generate and submit")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", loadtest.DefaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Write the generated results to this JSON file")
		logFormat  = flag.String("log-format", logger.FormatText, "Log format (json or text)")
		verbose    = flag.Bool("verbose", false, "Log every failed submission")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	if err := logger.InitWith(os.Stdout, *logFormat); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL:    *baseURL,
		NumResults: *numResults,
		Workers:    *workers,
		Timeout:    *timeout,
		OutputFile: *outputFile,
		Verbose:    *verbose,
	}

	if _, err := loadtest.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load test failed", logger.Error(err))
		os.Exit(1)
	}
}
