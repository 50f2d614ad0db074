package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/recicla/internal/simulate"
	"github.com/okian/recicla/pkg/logger"
)

// Default configuration constants.
const (
	defaultTeams   = 6
	defaultEvents  = 500
	defaultTimeout = 10 * time.Second
	defaultRunTime = 5 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://127.0.0.1:9080", "Base URL of the service")
		teams     = flag.Int("teams", defaultTeams, "Number of teams to create")
		events    = flag.Int("events", defaultEvents, "Number of register requests to send")
		workers   = flag.Int("workers", runtime.NumCPU(), "Number of concurrent clients")
		dupEvery  = flag.Int("dup-every", 0, "Resend every n-th request with the same request id (0 disables)")
		reset     = flag.Bool("reset", false, "Delete every team before the session")
		seed      = flag.Uint64("seed", 0, "Random seed (0 picks one)")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFormat = flag.String("log-format", "text", "Log format: text or json")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*logFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTime)
	defer cancel()

	stats, err := simulate.Run(ctx, simulate.Config{
		BaseURL:        *baseURL,
		Teams:          *teams,
		Events:         *events,
		Workers:        *workers,
		Timeout:        *timeout,
		DuplicateEvery: *dupEvery,
		Reset:          *reset,
		Seed:           *seed,
	})
	if err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
	fmt.Printf("teams=%d sent=%d accepted=%d duplicates=%d retries=%d failed=%d points=%d duration=%s\n",
		stats.TeamsCreated, stats.EventsSent, stats.EventsAccepted, stats.Duplicates,
		stats.Retries, stats.Failed, stats.PointsAwarded, stats.Duration.Round(time.Millisecond))
}
