package battle

import (
	"context"
	"time"

	battleservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/application"
	"github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/infrastructure/natsclient"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability"
)

// Module wires the battle service client.
type Module struct {
	Initiator battleservice.Initiator
}

func NewBattleModule(ctx context.Context, obs observability.Observability, conn natsclient.Requester, timeout time.Duration) *Module {
	obs.Provider.Logger.InfoContext(ctx, "battle.NewBattleModule initializing")
	return &Module{
		Initiator: natsclient.NewClient(conn, timeout, obs.Provider.Logger, obs.Registry.Tracer),
	}
}
