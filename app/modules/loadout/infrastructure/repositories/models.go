package loadoutdb

import (
	"time"

	loadoutdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/loadout/domain"
	"github.com/uptrace/bun"
)

// Loadout is a user's stored ranked loadout.
type Loadout struct {
	bun.BaseModel `bun:"table:ranked_loadouts,alias:rl"`

	UserID        string    `bun:"user_id,pk" json:"userId"`
	JutsuIDs      []string  `bun:"jutsu_ids,array,notnull" json:"jutsuIds"`
	WeaponIDs     []string  `bun:"weapon_ids,array,notnull" json:"weaponIds"`
	ConsumableIDs []string  `bun:"consumable_ids,array,notnull" json:"consumableIds"`
	UpdatedAt     time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updatedAt"`
}

// Selection returns the loadout contents.
func (l *Loadout) Selection() loadoutdomain.Selection {
	return loadoutdomain.Selection{
		JutsuIDs:      l.JutsuIDs,
		WeaponIDs:     l.WeaponIDs,
		ConsumableIDs: l.ConsumableIDs,
	}
}

// Item is a catalog entry.
type Item struct {
	bun.BaseModel `bun:"table:items,alias:it"`

	ID       string                 `bun:"id,pk" json:"id"`
	Name     string                 `bun:"name,notnull" json:"name"`
	ItemType loadoutdomain.ItemType `bun:"item_type,notnull" json:"itemType"`
	InShop   bool                   `bun:"in_shop,notnull" json:"inShop"`
}

// Jutsu is a catalog entry.
type Jutsu struct {
	bun.BaseModel `bun:"table:jutsus,alias:ju"`

	ID   string `bun:"id,pk" json:"id"`
	Name string `bun:"name,notnull" json:"name"`
}
