package tournamenthandlers

import (
	"context"

	battledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/battle/domain"
	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentlive "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/realtime"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/handlerwrapper"
	"github.com/Black-And-White-Club/shinobi-ranked/pkg/observability/attr"
)

// HandleBattleFinished records the winner of a tournament battle. Other
// battle kinds are ignored.
func (h *Handlers) HandleBattleFinished(ctx context.Context, evt *battledomain.Finished) ([]handlerwrapper.Result, error) {
	if evt.Kind != battledomain.KindTournament || evt.BattleID == "" {
		return nil, nil
	}
	recorded, err := h.service.RecordBattleResult(ctx, evt.BattleID, evt.WinnerID)
	if err != nil {
		return nil, err
	}
	if !recorded {
		h.logger.InfoContext(ctx, "Battle result did not change any match",
			attr.ExtractCorrelationID(ctx),
			attr.String("battle_id", evt.BattleID),
		)
	}
	return nil, nil
}

func (h *Handlers) HandleTournamentUpdated(_ context.Context, evt *tournamentdomain.Updated) ([]handlerwrapper.Result, error) {
	if h.hub != nil {
		h.hub.Broadcast(tournamentlive.Message{Type: tournamentlive.TypeUpdated, Room: evt.TournamentID, Payload: evt})
	}
	return nil, nil
}

func (h *Handlers) HandleTournamentCompleted(_ context.Context, evt *tournamentdomain.Completed) ([]handlerwrapper.Result, error) {
	if h.hub != nil {
		h.hub.Broadcast(tournamentlive.Message{Type: tournamentlive.TypeCompleted, Room: evt.TournamentID, Payload: evt})
	}
	return nil, nil
}
