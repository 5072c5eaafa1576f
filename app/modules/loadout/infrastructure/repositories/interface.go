package loadoutdb

import (
	"context"

	"github.com/uptrace/bun"
)

// Repository persists ranked loadouts and reads the item and jutsu catalog.
type Repository interface {
	GetLoadout(ctx context.Context, db bun.IDB, userID string) (*Loadout, error)
	GetLoadouts(ctx context.Context, db bun.IDB, userIDs []string) ([]*Loadout, error)
	// EnsureLoadout creates an empty loadout if none exists and returns the stored row.
	EnsureLoadout(ctx context.Context, db bun.IDB, userID string) (*Loadout, error)
	SaveLoadout(ctx context.Context, db bun.IDB, loadout *Loadout) error

	GetItems(ctx context.Context, db bun.IDB, ids []string) ([]*Item, error)
	GetJutsus(ctx context.Context, db bun.IDB, ids []string) ([]*Jutsu, error)
}
