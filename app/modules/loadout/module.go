package loadout

import (
	"context"

	loadoutservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/application"
	loadouthandlers "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/handlers"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
)

// Module represents the ranked loadout module.
type Module struct {
	Repository loadoutdb.Repository
	Service    loadoutservice.Service
}

// NewLoadoutModule builds the module and mounts its routes on api.
func NewLoadoutModule(ctx context.Context, obs observability.Observability, db *bun.DB, api chi.Router) *Module {
	logger := obs.Provider.Logger
	tracer := obs.Registry.Tracer
	logger.InfoContext(ctx, "loadout.NewLoadoutModule initializing")

	repo := loadoutdb.NewRepository(db)
	service := loadoutservice.NewLoadoutService(repo, logger, obs.Metrics("loadout"), tracer, db)
	handlers := loadouthandlers.NewLoadoutHandlers(service, logger, tracer)

	if api != nil {
		api.Route("/ranked/loadout", handlers.Routes)
	}

	return &Module{Repository: repo, Service: service}
}
