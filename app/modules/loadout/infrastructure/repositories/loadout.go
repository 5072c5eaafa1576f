package loadoutdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements Repository with bun.
type Impl struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetLoadout(ctx context.Context, db bun.IDB, userID string) (*Loadout, error) {
	db = r.resolveDB(db)
	l := new(Loadout)
	if err := db.NewSelect().Model(l).Where("user_id = ?", userID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("loadout.GetLoadout: %w", err)
	}
	return l, nil
}

func (r *Impl) GetLoadouts(ctx context.Context, db bun.IDB, userIDs []string) ([]*Loadout, error) {
	if len(userIDs) == 0 {
		return []*Loadout{}, nil
	}
	db = r.resolveDB(db)
	var out []*Loadout
	if err := db.NewSelect().Model(&out).Where("user_id IN (?)", bun.In(userIDs)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("loadout.GetLoadouts: %w", err)
	}
	return out, nil
}

func (r *Impl) EnsureLoadout(ctx context.Context, db bun.IDB, userID string) (*Loadout, error) {
	db = r.resolveDB(db)
	empty := &Loadout{
		UserID:        userID,
		JutsuIDs:      []string{},
		WeaponIDs:     []string{},
		ConsumableIDs: []string{},
		UpdatedAt:     time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(empty).On("CONFLICT (user_id) DO NOTHING").Exec(ctx); err != nil {
		return nil, fmt.Errorf("loadout.EnsureLoadout: %w", err)
	}
	return r.GetLoadout(ctx, db, userID)
}

func (r *Impl) SaveLoadout(ctx context.Context, db bun.IDB, l *Loadout) error {
	db = r.resolveDB(db)
	l.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(l).
		On("CONFLICT (user_id) DO UPDATE").
		Set("jutsu_ids = EXCLUDED.jutsu_ids").
		Set("weapon_ids = EXCLUDED.weapon_ids").
		Set("consumable_ids = EXCLUDED.consumable_ids").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("loadout.SaveLoadout: %w", err)
	}
	return nil
}

func (r *Impl) GetItems(ctx context.Context, db bun.IDB, ids []string) ([]*Item, error) {
	if len(ids) == 0 {
		return []*Item{}, nil
	}
	db = r.resolveDB(db)
	var out []*Item
	if err := db.NewSelect().Model(&out).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("loadout.GetItems: %w", err)
	}
	return out, nil
}

func (r *Impl) GetJutsus(ctx context.Context, db bun.IDB, ids []string) ([]*Jutsu, error) {
	if len(ids) == 0 {
		return []*Jutsu{}, nil
	}
	db = r.resolveDB(db)
	var out []*Jutsu
	if err := db.NewSelect().Model(&out).Where("id IN (?)", bun.In(ids)).Scan(ctx); err != nil {
		return nil, fmt.Errorf("loadout.GetJutsus: %w", err)
	}
	return out, nil
}
