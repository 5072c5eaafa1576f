package profiledb

import (
	"time"

	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	"github.com/uptrace/bun"
)

// Profile is the slice of the character record the ranked core reads and writes.
type Profile struct {
	bun.BaseModel `bun:"table:user_profiles,alias:up"`

	UserID     string               `bun:"user_id,pk" json:"userId"`
	Username   string               `bun:"username,notnull" json:"username"`
	RankedLP   int                  `bun:"ranked_lp,notnull,default:0" json:"rankedLp"`
	Status     profiledomain.Status `bun:"status,notnull,default:'AWAKE'" json:"status"`
	ClanID     *string              `bun:"clan_id,nullzero" json:"clanId,omitempty"`
	CurHealth  int                  `bun:"cur_health,notnull" json:"curHealth"`
	MaxHealth  int                  `bun:"max_health,notnull" json:"maxHealth"`
	Money      int64                `bun:"money,notnull,default:0" json:"money"`
	Reputation int64                `bun:"reputation,notnull,default:0" json:"reputation"`
	UpdatedAt  time.Time            `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// InClan reports whether the profile belongs to clanID.
func (p *Profile) InClan(clanID string) bool {
	return p.ClanID != nil && *p.ClanID == clanID
}

// UserItem is an inventory stack credited by reward payouts.
type UserItem struct {
	bun.BaseModel `bun:"table:user_items,alias:ui"`

	UserID   string `bun:"user_id,pk"`
	ItemID   string `bun:"item_id,pk"`
	Quantity int    `bun:"quantity,notnull"`
}
