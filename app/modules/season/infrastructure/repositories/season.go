package seasondb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const seasonLockKey = "ranked_seasons"

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

func (r *Impl) AcquireSeasonLock(ctx context.Context, db bun.IDB) error {
	db = r.resolveDB(db)
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", seasonLockKey).Exec(ctx); err != nil {
		return fmt.Errorf("season.AcquireSeasonLock: %w", err)
	}
	return nil
}

func (r *Impl) GetSeason(ctx context.Context, db bun.IDB, id string) (*Season, error) {
	db = r.resolveDB(db)
	s := new(Season)
	if err := db.NewSelect().Model(s).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("season.GetSeason: %w", err)
	}
	return s, nil
}

func (r *Impl) ListSeasons(ctx context.Context, db bun.IDB) ([]*Season, error) {
	db = r.resolveDB(db)
	var out []*Season
	if err := db.NewSelect().Model(&out).OrderExpr("start_date DESC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("season.ListSeasons: %w", err)
	}
	return out, nil
}

func (r *Impl) ListOpenSeasons(ctx context.Context, db bun.IDB) ([]*Season, error) {
	db = r.resolveDB(db)
	var out []*Season
	if err := db.NewSelect().Model(&out).Where("ended = FALSE").OrderExpr("start_date ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("season.ListOpenSeasons: %w", err)
	}
	return out, nil
}

func (r *Impl) ListDueSeasons(ctx context.Context, db bun.IDB, now time.Time) ([]*Season, error) {
	db = r.resolveDB(db)
	var out []*Season
	err := db.NewSelect().
		Model(&out).
		Where("ended = FALSE").
		Where("end_date < ?", now).
		OrderExpr("end_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("season.ListDueSeasons: %w", err)
	}
	return out, nil
}

func (r *Impl) InsertSeason(ctx context.Context, db bun.IDB, s *Season) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(s).Exec(ctx); err != nil {
		return fmt.Errorf("season.InsertSeason: %w", err)
	}
	return nil
}

func (r *Impl) UpdateSeason(ctx context.Context, db bun.IDB, s *Season) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(s).
		Column("name", "start_date", "end_date", "rewards", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("season.UpdateSeason: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) DeleteSeason(ctx context.Context, db bun.IDB, id string) error {
	db = r.resolveDB(db)
	res, err := db.NewDelete().Model((*Season)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("season.DeleteSeason: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

func (r *Impl) MarkEnded(ctx context.Context, db bun.IDB, id string) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Season)(nil)).
		Set("ended = TRUE").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("ended = FALSE").
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("season.MarkEnded: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("season.MarkEnded: %w", err)
	}
	return n == 1, nil
}

func (r *Impl) InsertUserRewards(ctx context.Context, db bun.IDB, rows []*UserReward) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (user_id, season_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("season.InsertUserRewards: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("season.InsertUserRewards: %w", err)
	}
	return n, nil
}

func (r *Impl) unclaimedQuery(db bun.IDB, userID string, out *[]*UserReward) *bun.SelectQuery {
	return db.NewSelect().
		Model(out).
		Relation("Season").
		Where("rur.user_id = ?", userID).
		Where("rur.claimed = FALSE").
		OrderExpr("rur.created_at ASC")
}

func (r *Impl) ListUnclaimed(ctx context.Context, db bun.IDB, userID string) ([]*UserReward, error) {
	db = r.resolveDB(db)
	var out []*UserReward
	if err := r.unclaimedQuery(db, userID, &out).Scan(ctx); err != nil {
		return nil, fmt.Errorf("season.ListUnclaimed: %w", err)
	}
	return out, nil
}

func (r *Impl) LockUnclaimed(ctx context.Context, db bun.IDB, userID string) ([]*UserReward, error) {
	db = r.resolveDB(db)
	var out []*UserReward
	if err := r.unclaimedQuery(db, userID, &out).For("UPDATE OF rur").Scan(ctx); err != nil {
		return nil, fmt.Errorf("season.LockUnclaimed: %w", err)
	}
	return out, nil
}

func (r *Impl) MarkClaimed(ctx context.Context, db bun.IDB, userID string, seasonIDs []string, at time.Time) (int64, error) {
	if len(seasonIDs) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*UserReward)(nil)).
		Set("claimed = TRUE").
		Set("claimed_at = ?", at).
		Where("user_id = ?", userID).
		Where("season_id IN (?)", bun.In(seasonIDs)).
		Where("claimed = FALSE").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("season.MarkClaimed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("season.MarkClaimed: %w", err)
	}
	return n, nil
}

func (r *Impl) DivisionCounts(ctx context.Context, db bun.IDB, seasonID string) ([]DivisionCount, error) {
	db = r.resolveDB(db)
	var out []DivisionCount
	err := db.NewSelect().
		Model((*UserReward)(nil)).
		ColumnExpr("division").
		ColumnExpr("COUNT(*) AS count").
		Where("season_id = ?", seasonID).
		GroupExpr("division").
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("season.DivisionCounts: %w", err)
	}
	return out, nil
}
