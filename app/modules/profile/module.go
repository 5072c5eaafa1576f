package profile

import (
	"context"

	profiledb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability"
	"github.com/uptrace/bun"
)

// Module exposes the profile store to the ranked modules. It has no routes of
// its own.
type Module struct {
	Repository profiledb.Repository
}

func NewProfileModule(ctx context.Context, obs observability.Observability, db *bun.DB) *Module {
	obs.Provider.Logger.InfoContext(ctx, "profile.NewProfileModule initializing")
	return &Module{Repository: profiledb.NewRepository(db)}
}
