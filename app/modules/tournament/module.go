package tournament

import (
	"context"
	"fmt"
	"time"

	battleservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/application"
	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	tournamentservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/application"
	tournamenthandlers "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/handlers"
	tournamentqueue "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/queue"
	tournamentlive "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/realtime"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	tournamentrouter "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/router"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/jobqueue"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Deps are the collaborators owned by other modules.
type Deps struct {
	DB        *bun.DB
	Profiles  profiledb.Repository
	Battles   battleservice.Initiator
	Publisher message.Publisher
	// Subscriber consumes battle results once per deployment.
	Subscriber message.Subscriber
	// Live receives every tournament event on every instance.
	Live   message.Subscriber
	Router *message.Router
	Jobs   *jobqueue.Queue
	API    chi.Router
}

type Options struct {
	RoundDuration  time.Duration
	AllowedOrigins []string
}

// Module represents the tournament module.
type Module struct {
	Service tournamentservice.Service
	Hub     *tournamentlive.Hub
}

// NewTournamentModule wires the bracket engine, its deadline jobs, its event
// handlers and its routes. Jobs must be started by the caller after every
// module has registered.
func NewTournamentModule(ctx context.Context, obs observability.Observability, deps Deps, opts Options) (*Module, error) {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer
	logger.InfoContext(ctx, "tournament.NewTournamentModule initializing")

	m := obs.Metrics("tournament")
	repo := tournamentdb.NewRepository(deps.DB)
	service := tournamentservice.NewTournamentService(
		repo, deps.Profiles, deps.Battles, deps.Publisher,
		logger, m, tracer, deps.DB,
		tournamentservice.WithRoundDuration(opts.RoundDuration),
	)

	if deps.Jobs != nil {
		tournamentqueue.Register(deps.Jobs, service, logger)
		service.SetScheduler(tournamentqueue.NewScheduler(deps.Jobs))
	}

	hub := tournamentlive.NewHub(logger, opts.AllowedOrigins)
	handlers := tournamenthandlers.NewTournamentHandlers(service, hub, logger, tracer)

	if deps.Router != nil {
		router := tournamentrouter.NewTournamentRouter(logger, deps.Router, deps.Subscriber, deps.Live, deps.Publisher, m, tracer)
		if err := router.Configure(ctx, handlers); err != nil {
			return nil, fmt.Errorf("failed to configure tournament router: %w", err)
		}
	}

	if deps.API != nil {
		deps.API.Route("/ranked/tournaments", handlers.Routes)
	}

	return &Module{Service: service, Hub: hub}, nil
}

// Close disconnects live subscribers.
func (m *Module) Close() error {
	m.Hub.Close()
	return nil
}
