package rankedqueue

import (
	"context"
	"fmt"
	"sync"

	battleservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/application"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	rankedqueueservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/application"
	rankedqueuedomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/domain"
	rankedqueuehandlers "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/handlers"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/pollguard"
	rankedqueuedb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/scheduler"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Deps are the collaborators owned by other modules.
type Deps struct {
	DB        *bun.DB
	Profiles  profiledb.Repository
	Loadouts  loadoutdb.Repository
	Battles   battleservice.Initiator
	Publisher message.Publisher
	Guard     pollguard.Guard
	API       chi.Router
}

// Options tune matchmaking.
type Options struct {
	Ticker         scheduler.Config
	ToleranceSteps *rankedqueuedomain.ToleranceSteps
}

// Module represents the ranked queue module.
type Module struct {
	Service       rankedqueueservice.Service
	Ticker        scheduler.MatchTicker
	cancelFunc    context.CancelFunc
	observability observability.Observability
}

// NewRankedQueueModule creates and initializes a new ranked queue module.
func NewRankedQueueModule(ctx context.Context, obs observability.Observability, deps Deps, opts Options) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer

	logger.InfoContext(ctx, "rankedqueue.NewRankedQueueModule initializing")

	var svcOpts []rankedqueueservice.Option
	if opts.ToleranceSteps != nil {
		if err := opts.ToleranceSteps.Validate(); err != nil {
			return nil, fmt.Errorf("invalid tolerance steps: %w", err)
		}
		svcOpts = append(svcOpts, rankedqueueservice.WithToleranceSteps(*opts.ToleranceSteps))
	}

	repo := rankedqueuedb.NewRepository(deps.DB)
	service := rankedqueueservice.NewRankedQueueService(
		repo,
		deps.Profiles,
		deps.Loadouts,
		deps.Battles,
		deps.Publisher,
		deps.Guard,
		logger,
		obs.Metrics("rankedqueue"),
		tracer,
		deps.DB,
		svcOpts...,
	)

	if deps.API != nil {
		handlers := rankedqueuehandlers.NewQueueHandlers(service, logger, tracer)
		deps.API.Route("/ranked/queue", handlers.Routes)
	}

	return &Module{
		Service:       service,
		Ticker:        scheduler.NewGocronTicker(service, opts.Ticker, logger),
		observability: obs,
	}, nil
}

// Run starts the match ticker and blocks until ctx ends.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	logger := m.observability.Provider.Logger
	logger.InfoContext(ctx, "Starting ranked queue module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if err := m.Ticker.Start(ctx); err != nil {
		logger.ErrorContext(ctx, "Failed to start match ticker", "error", err)
		return
	}

	<-ctx.Done()
	logger.InfoContext(ctx, "Ranked queue module goroutine stopped")
}

// Close stops the ticker.
func (m *Module) Close() error {
	logger := m.observability.Provider.Logger
	logger.Info("Stopping ranked queue module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	if m.Ticker != nil {
		if err := m.Ticker.Stop(); err != nil {
			return fmt.Errorf("error stopping match ticker: %w", err)
		}
	}

	logger.Info("Ranked queue module stopped")
	return nil
}
