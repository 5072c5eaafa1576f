package profiledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
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

func (r *Impl) GetUser(ctx context.Context, db bun.IDB, userID string) (*Profile, error) {
	db = r.resolveDB(db)
	p := new(Profile)
	err := db.NewSelect().Model(p).Where("user_id = ?", userID).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("profile.GetUser: %w", err)
	}
	return p, nil
}

func (r *Impl) GetUsers(ctx context.Context, db bun.IDB, userIDs []string) ([]*Profile, error) {
	if len(userIDs) == 0 {
		return []*Profile{}, nil
	}
	db = r.resolveDB(db)
	var out []*Profile
	err := db.NewSelect().Model(&out).Where("user_id IN (?)", bun.In(userIDs)).Order("user_id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("profile.GetUsers: %w", err)
	}
	return out, nil
}

func (r *Impl) SetStatus(ctx context.Context, db bun.IDB, userIDs []string, expected, next profiledomain.Status) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Profile)(nil)).
		Set("status = ?", next).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id IN (?)", bun.In(userIDs)).
		Where("status = ?", expected).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("profile.SetStatus: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("profile.SetStatus rows affected: %w", err)
	}
	return n, nil
}

func (r *Impl) ApplyRewardBundle(ctx context.Context, db bun.IDB, userID string, bundle rewards.Bundle) error {
	db = r.resolveDB(db)

	res, err := db.NewUpdate().
		Model((*Profile)(nil)).
		Set("money = money + ?", bundle.Money).
		Set("reputation = reputation + ?", bundle.Reputation).
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("profile.ApplyRewardBundle: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("profile.ApplyRewardBundle rows affected: %w", err)
	}
	if n == 0 {
		return ErrNoRowsAffected
	}

	for _, it := range bundle.Items {
		item := &UserItem{UserID: userID, ItemID: it.ItemID, Quantity: it.Quantity}
		_, err := db.NewInsert().
			Model(item).
			On("CONFLICT (user_id, item_id) DO UPDATE").
			Set("quantity = ui.quantity + EXCLUDED.quantity").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("profile.ApplyRewardBundle item %s: %w", it.ItemID, err)
		}
	}
	return nil
}

func (r *Impl) PrepareForBattle(ctx context.Context, db bun.IDB, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model((*Profile)(nil)).
		Set("status = ?", profiledomain.StatusAwake).
		Set("cur_health = max_health").
		Set("updated_at = ?", time.Now().UTC()).
		Where("user_id IN (?)", bun.In(userIDs)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("profile.PrepareForBattle: %w", err)
	}
	return nil
}

func (r *Impl) ListRanked(ctx context.Context, db bun.IDB) ([]*Profile, error) {
	db = r.resolveDB(db)
	var out []*Profile
	if err := db.NewSelect().Model(&out).Where("ranked_lp > 0").Order("user_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("profile.ListRanked: %w", err)
	}
	return out, nil
}
