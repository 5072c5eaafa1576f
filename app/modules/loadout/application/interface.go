package loadoutservice

import (
	"context"

	loadoutdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/domain"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
)

// Service manages ranked loadouts.
type Service interface {
	// GetLoadout returns the user's loadout, creating an empty one on first access.
	GetLoadout(ctx context.Context, userID string) (*loadoutdb.Loadout, error)
	// UpdateLoadout validates sel and replaces the stored loadout wholesale.
	UpdateLoadout(ctx context.Context, userID string, sel loadoutdomain.Selection) (*loadoutdb.Loadout, error)
}
