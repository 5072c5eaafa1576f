package seasonservice

import (
	"context"
	"time"

	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	seasondb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
)

// Service manages ranked seasons and their rewards.
type Service interface {
	// GetCurrentSeason returns the running season or nil.
	GetCurrentSeason(ctx context.Context) (*seasondb.Season, error)
	ListSeasons(ctx context.Context) ([]*seasondb.Season, error)
	CreateSeason(ctx context.Context, actor identity.Actor, draft seasondomain.Draft) (*seasondb.Season, error)
	UpdateSeason(ctx context.Context, actor identity.Actor, id string, draft seasondomain.Draft) (*seasondb.Season, error)
	DeleteSeason(ctx context.Context, actor identity.Actor, id string) error
	// EndSeason closes the season and places every ranked user in a division.
	EndSeason(ctx context.Context, actor identity.Actor, id string) (*EndResult, error)

	GetUnclaimedRewards(ctx context.Context, userID string) ([]UnclaimedReward, error)
	// ClaimRewards pays every unclaimed reward of the user as one bundle.
	ClaimRewards(ctx context.Context, userID string) (*ClaimResult, error)

	DivisionDistribution(ctx context.Context, seasonID string) ([]seasondb.DivisionCount, error)
}

// EndScheduler arranges for EndSeason to run at a season's end date.
type EndScheduler interface {
	ScheduleSeasonEnd(ctx context.Context, seasonID string, at time.Time) error
}

type UnclaimedReward struct {
	SeasonID   string                `json:"seasonId"`
	SeasonName string                `json:"seasonName"`
	Division   seasondomain.Division `json:"division"`
	Rewards    rewards.Bundle        `json:"rewards"`
}

type ClaimResult struct {
	SeasonIDs []string       `json:"seasonIds"`
	Rewards   rewards.Bundle `json:"rewards"`
}

type EndResult struct {
	SeasonID       string `json:"seasonId"`
	RewardsWritten int    `json:"rewardsWritten"`
}
