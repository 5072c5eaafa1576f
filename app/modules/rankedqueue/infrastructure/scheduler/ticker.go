// Package scheduler owns the periodic matchmaking tick.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	rankedqueueservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/application"
	rankedqueuedomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
	"github.com/go-co-op/gocron/v2"
)

// MatchTicker drives TryMatch and stale cleanup without client polls.
type MatchTicker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	TickInterval    time.Duration
	CleanupInterval time.Duration
	StaleAge        time.Duration
	// MaxPairsPerTick bounds how many pairs one tick may form.
	MaxPairsPerTick int
}

func (c Config) withDefaults() Config {
	if c.TickInterval <= 0 {
		c.TickInterval = 5 * time.Second
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	if c.StaleAge <= 0 {
		c.StaleAge = rankedqueuedomain.StaleEntryAge
	}
	if c.MaxPairsPerTick <= 0 {
		c.MaxPairsPerTick = 20
	}
	return c
}

// GocronTicker runs both jobs in singleton mode so a slow tick is skipped
// rather than overlapped.
type GocronTicker struct {
	svc    rankedqueueservice.Service
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

var _ MatchTicker = (*GocronTicker)(nil)

func NewGocronTicker(svc rankedqueueservice.Service, cfg Config, logger *slog.Logger) *GocronTicker {
	if logger == nil {
		logger = slog.Default()
	}
	return &GocronTicker{svc: svc, cfg: cfg.withDefaults(), logger: logger}
}

func (t *GocronTicker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sched != nil {
		return fmt.Errorf("match ticker already started")
	}

	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	jobCtx, cancel := context.WithCancel(ctx)

	if _, err := sched.NewJob(
		gocron.DurationJob(t.cfg.TickInterval),
		gocron.NewTask(func() { t.Tick(jobCtx) }),
		gocron.WithName("ranked-match-tick"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule match tick: %w", err)
	}
	if _, err := sched.NewJob(
		gocron.DurationJob(t.cfg.CleanupInterval),
		gocron.NewTask(func() { t.Cleanup(jobCtx) }),
		gocron.WithName("ranked-stale-cleanup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule stale cleanup: %w", err)
	}

	sched.Start()
	t.sched = sched
	t.cancel = cancel
	t.logger.InfoContext(ctx, "Match ticker started",
		attr.Duration("tick_interval", t.cfg.TickInterval),
		attr.Duration("cleanup_interval", t.cfg.CleanupInterval),
	)
	return nil
}

func (t *GocronTicker) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sched == nil {
		return nil
	}
	t.cancel()
	err := t.sched.Shutdown()
	t.sched = nil
	return err
}

// Tick forms pairs until the queue has no more compatible entries.
func (t *GocronTicker) Tick(ctx context.Context) int {
	paired := 0
	for paired < t.cfg.MaxPairsPerTick {
		if ctx.Err() != nil {
			return paired
		}
		m, err := t.svc.TryMatch(ctx)
		if err != nil {
			if rankedqueueservice.IsFailure(err) {
				t.logger.DebugContext(ctx, "Match tick rejected pairing", attr.Error(err))
			} else {
				t.logger.ErrorContext(ctx, "Match tick failed", attr.Error(err))
			}
			return paired
		}
		if !m.Matched {
			return paired
		}
		paired++
	}
	return paired
}

func (t *GocronTicker) Cleanup(ctx context.Context) {
	if _, err := t.svc.CleanupStale(ctx, t.cfg.StaleAge); err != nil {
		t.logger.ErrorContext(ctx, "Stale queue cleanup failed", attr.Error(err))
	}
}
