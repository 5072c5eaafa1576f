package seasondb

import (
	"time"

	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
	"github.com/uptrace/bun"
)

// Season is a ranked season. Rewards are keyed by division.
type Season struct {
	bun.BaseModel `bun:"table:ranked_seasons,alias:rs"`

	ID        string                   `bun:"id,pk" json:"id"`
	Name      string                   `bun:"name,notnull" json:"name"`
	StartDate time.Time                `bun:"start_date,notnull" json:"startDate"`
	EndDate   time.Time                `bun:"end_date,notnull" json:"endDate"`
	Ended     bool                     `bun:"ended,notnull,default:false" json:"ended"`
	Rewards   seasondomain.RewardTable `bun:"rewards,type:jsonb,notnull" json:"rewards"`
	CreatedAt time.Time                `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt time.Time                `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

func (s *Season) Window() seasondomain.Window {
	return seasondomain.Window{Start: s.StartDate, End: s.EndDate}
}

// IsActive reports whether the season is running at now.
func (s *Season) IsActive(now time.Time) bool {
	return !s.Ended && s.Window().Contains(now)
}

// UserReward is a user's division placement in an ended season.
type UserReward struct {
	bun.BaseModel `bun:"table:ranked_user_rewards,alias:rur"`

	UserID    string                `bun:"user_id,pk" json:"userId"`
	SeasonID  string                `bun:"season_id,pk" json:"seasonId"`
	Division  seasondomain.Division `bun:"division,notnull" json:"division"`
	RankedLP  int                   `bun:"ranked_lp,notnull" json:"rankedLp"`
	Claimed   bool                  `bun:"claimed,notnull,default:false" json:"claimed"`
	ClaimedAt *time.Time            `bun:"claimed_at,nullzero" json:"claimedAt,omitempty"`
	CreatedAt time.Time             `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`

	Season *Season `bun:"rel:belongs-to,join:season_id=id" json:"season,omitempty"`
}

// DivisionCount is one bar of the division distribution.
type DivisionCount struct {
	Division seasondomain.Division `bun:"division" json:"division"`
	Count    int                   `bun:"count" json:"count"`
}
