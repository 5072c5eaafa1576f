package season

import (
	"context"

	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	seasonservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/application"
	seasonhandlers "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/handlers"
	seasonqueue "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/queue"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
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
	Publisher message.Publisher
	Jobs      *jobqueue.Queue
	API       chi.Router
}

// Module represents the season module.
type Module struct {
	Service seasonservice.Service
}

// NewSeasonModule wires the season service, its River jobs and its routes.
// Jobs must be started by the caller after every module has registered.
func NewSeasonModule(ctx context.Context, obs observability.Observability, deps Deps) *Module {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer
	logger.InfoContext(ctx, "season.NewSeasonModule initializing")

	repo := seasondb.NewRepository(deps.DB)
	service := seasonservice.NewSeasonService(repo, deps.Profiles, deps.Publisher, logger, obs.Metrics("season"), tracer, deps.DB)

	if deps.Jobs != nil {
		seasonqueue.Register(deps.Jobs, service, logger)
		service.SetScheduler(seasonqueue.NewScheduler(deps.Jobs))
	}

	if deps.API != nil {
		handlers := seasonhandlers.NewSeasonHandlers(service, seasonservice.GenerateDivisionChart, logger, tracer)
		deps.API.Route("/ranked/seasons", handlers.Routes)
	}

	return &Module{Service: service}
}
