package simulate

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/recicla/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Defaults applied by Run to zero fields.
const (
	defaultTeams   = 6
	defaultEvents  = 500
	defaultTimeout = 10 * time.Second
)

// Run executes a full simulated session against cfg.BaseURL.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg, err := normalize(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.Named("simulate")
	stats := &Stats{StartTime: time.Now()}

	var retries atomic.Int64
	client := NewClient(cfg.BaseURL, cfg.Timeout)
	client.onRetry = func() { retries.Add(1) }

	log.Info(ctx, "starting recicla session",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("events", cfg.Events),
		logger.Int("workers", cfg.Workers),
	)

	// Step 1: Check service health
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Start from a known state
	baseline := map[string]int{}
	if cfg.Reset {
		if err := client.DeleteAllTeams(ctx); err != nil {
			return nil, fmt.Errorf("reset failed: %w", err)
		}
	} else {
		existing, err := client.Teams(ctx)
		if err != nil {
			return nil, fmt.Errorf("list teams failed: %w", err)
		}
		for _, t := range existing {
			baseline[t.ID] = t.Points
		}
	}

	// Step 3: Create teams
	teams := make([]Team, cfg.Teams)
	for i := range teams {
		t, err := client.CreateTeam(ctx, teamName(i))
		if err != nil {
			return nil, fmt.Errorf("create team %d: %w", i, err)
		}
		teams[i] = t
	}
	stats.TeamsCreated = len(teams)

	materials, err := client.Materials(ctx)
	if err != nil {
		return nil, fmt.Errorf("list materials failed: %w", err)
	}
	if len(materials) == 0 {
		return nil, errors.New("service offers no materials")
	}

	// Step 4: Register recycling from concurrent clients
	subs := plan(cfg.Events, len(teams), cfg.DuplicateEvery, materials, cfg.Seed)
	expected, err := submit(ctx, client, cfg.Workers, teams, subs, stats)
	if err != nil {
		return stats, err
	}
	stats.Retries = int(retries.Load())

	// Step 5: Verify
	if err := verify(ctx, client, teams, baseline, expected, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "session completed",
		logger.Int("accepted", stats.EventsAccepted),
		logger.Int("duplicates", stats.Duplicates),
		logger.Int("retries", stats.Retries),
		logger.Int("failed", stats.Failed),
		logger.Int("points", stats.PointsAwarded),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

func normalize(cfg Config) (Config, error) {
	if cfg.BaseURL == "" {
		return cfg, fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	}
	if cfg.Teams < 0 || cfg.Events < 0 || cfg.Workers < 0 || cfg.DuplicateEvery < 0 {
		return cfg, fmt.Errorf("%w: counts must not be negative", ErrInvalidConfig)
	}
	if cfg.Teams == 0 {
		cfg.Teams = defaultTeams
	}
	if cfg.Events == 0 {
		cfg.Events = defaultEvents
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return cfg, nil
}

// submit sends every planned request and returns the points each team
// should have gained. Requests the service rejected after retries are
// counted as failed and excluded from the expectation.
func submit(ctx context.Context, client *Client, workers int, teams []Team, subs []submission, stats *Stats) (map[string]int, error) {
	var (
		mu       sync.Mutex
		expected = make(map[string]int, len(teams))
		sent     atomic.Int64
		accepted atomic.Int64
		dups     atomic.Int64
		failed   atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, s := range subs {
		g.Go(func() error {
			team := teams[s.Team]
			sends := 1
			if s.Resend {
				sends = 2
			}
			for range sends {
				sent.Add(1)
				ev, dup, err := client.RecordEvent(gctx, s.RequestID, team.ID, s.Material.Name)
				switch {
				case errors.Is(err, ErrBackpressure):
					failed.Add(1)
					continue
				case err != nil:
					return fmt.Errorf("register %s for %s: %w", s.Material.Name, team.ID, err)
				case dup:
					dups.Add(1)
					continue
				}
				if ev.Points != s.Material.Points {
					return fmt.Errorf("%s awarded %d points, table says %d", s.Material.Name, ev.Points, s.Material.Points)
				}
				accepted.Add(1)
				mu.Lock()
				expected[team.ID] += ev.Points
				mu.Unlock()
			}
			return nil
		})
	}
	err := g.Wait()

	stats.EventsSent = int(sent.Load())
	stats.EventsAccepted = int(accepted.Load())
	stats.Duplicates = int(dups.Load())
	stats.Failed = int(failed.Load())
	for _, p := range expected {
		stats.PointsAwarded += p
	}
	if err != nil {
		return nil, fmt.Errorf("event submission failed: %w", err)
	}
	return expected, nil
}
