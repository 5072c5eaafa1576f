package seasonhandlers

import (
	"context"

	seasonservice "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/application"
	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
)

// FakeService implements seasonservice.Service. Unset funcs return zero
// values.
type FakeService struct {
	GetCurrentSeasonFunc     func(ctx context.Context) (*seasondb.Season, error)
	ListSeasonsFunc          func(ctx context.Context) ([]*seasondb.Season, error)
	CreateSeasonFunc         func(ctx context.Context, actor identity.Actor, draft seasondomain.Draft) (*seasondb.Season, error)
	UpdateSeasonFunc         func(ctx context.Context, actor identity.Actor, id string, draft seasondomain.Draft) (*seasondb.Season, error)
	DeleteSeasonFunc         func(ctx context.Context, actor identity.Actor, id string) error
	EndSeasonFunc            func(ctx context.Context, actor identity.Actor, id string) (*seasonservice.EndResult, error)
	GetUnclaimedRewardsFunc  func(ctx context.Context, userID string) ([]seasonservice.UnclaimedReward, error)
	ClaimRewardsFunc         func(ctx context.Context, userID string) (*seasonservice.ClaimResult, error)
	DivisionDistributionFunc func(ctx context.Context, seasonID string) ([]seasondb.DivisionCount, error)
}

var _ seasonservice.Service = (*FakeService)(nil)

func (f *FakeService) GetCurrentSeason(ctx context.Context) (*seasondb.Season, error) {
	if f.GetCurrentSeasonFunc != nil {
		return f.GetCurrentSeasonFunc(ctx)
	}
	return nil, nil
}

func (f *FakeService) ListSeasons(ctx context.Context) ([]*seasondb.Season, error) {
	if f.ListSeasonsFunc != nil {
		return f.ListSeasonsFunc(ctx)
	}
	return []*seasondb.Season{}, nil
}

func (f *FakeService) CreateSeason(ctx context.Context, actor identity.Actor, draft seasondomain.Draft) (*seasondb.Season, error) {
	if f.CreateSeasonFunc != nil {
		return f.CreateSeasonFunc(ctx, actor, draft)
	}
	return &seasondb.Season{ID: "s1", Name: draft.Name}, nil
}

func (f *FakeService) UpdateSeason(ctx context.Context, actor identity.Actor, id string, draft seasondomain.Draft) (*seasondb.Season, error) {
	if f.UpdateSeasonFunc != nil {
		return f.UpdateSeasonFunc(ctx, actor, id, draft)
	}
	return &seasondb.Season{ID: id, Name: draft.Name}, nil
}

func (f *FakeService) DeleteSeason(ctx context.Context, actor identity.Actor, id string) error {
	if f.DeleteSeasonFunc != nil {
		return f.DeleteSeasonFunc(ctx, actor, id)
	}
	return nil
}

func (f *FakeService) EndSeason(ctx context.Context, actor identity.Actor, id string) (*seasonservice.EndResult, error) {
	if f.EndSeasonFunc != nil {
		return f.EndSeasonFunc(ctx, actor, id)
	}
	return &seasonservice.EndResult{SeasonID: id}, nil
}

func (f *FakeService) GetUnclaimedRewards(ctx context.Context, userID string) ([]seasonservice.UnclaimedReward, error) {
	if f.GetUnclaimedRewardsFunc != nil {
		return f.GetUnclaimedRewardsFunc(ctx, userID)
	}
	return []seasonservice.UnclaimedReward{}, nil
}

func (f *FakeService) ClaimRewards(ctx context.Context, userID string) (*seasonservice.ClaimResult, error) {
	if f.ClaimRewardsFunc != nil {
		return f.ClaimRewardsFunc(ctx, userID)
	}
	return &seasonservice.ClaimResult{}, nil
}

func (f *FakeService) DivisionDistribution(ctx context.Context, seasonID string) ([]seasondb.DivisionCount, error) {
	if f.DivisionDistributionFunc != nil {
		return f.DivisionDistributionFunc(ctx, seasonID)
	}
	return nil, nil
}
