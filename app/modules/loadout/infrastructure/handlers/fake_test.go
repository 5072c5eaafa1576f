package loadouthandlers

import (
	"context"

	loadoutservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/application"
	loadoutdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/domain"
	loadoutdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/infrastructure/repositories"
)

type FakeService struct {
	GetLoadoutFunc    func(ctx context.Context, userID string) (*loadoutdb.Loadout, error)
	UpdateLoadoutFunc func(ctx context.Context, userID string, sel loadoutdomain.Selection) (*loadoutdb.Loadout, error)
}

func (f *FakeService) GetLoadout(ctx context.Context, userID string) (*loadoutdb.Loadout, error) {
	return f.GetLoadoutFunc(ctx, userID)
}

func (f *FakeService) UpdateLoadout(ctx context.Context, userID string, sel loadoutdomain.Selection) (*loadoutdb.Loadout, error) {
	return f.UpdateLoadoutFunc(ctx, userID, sel)
}

var _ loadoutservice.Service = (*FakeService)(nil)
