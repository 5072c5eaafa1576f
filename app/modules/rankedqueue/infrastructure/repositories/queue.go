package rankedqueuedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

const queueLockKey = "ranked_queue"

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

func (r *Impl) AcquireQueueLock(ctx context.Context, db bun.IDB) error {
	db = r.resolveDB(db)
	if _, err := db.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", queueLockKey).Exec(ctx); err != nil {
		return fmt.Errorf("rankedqueue.AcquireQueueLock: %w", err)
	}
	return nil
}

func (r *Impl) GetEntry(ctx context.Context, db bun.IDB, userID string) (*QueueEntry, error) {
	db = r.resolveDB(db)
	e := new(QueueEntry)
	if err := db.NewSelect().Model(e).Where("user_id = ?", userID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rankedqueue.GetEntry: %w", err)
	}
	return e, nil
}

func (r *Impl) InsertEntry(ctx context.Context, db bun.IDB, entry *QueueEntry) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewInsert().Model(entry).On("CONFLICT (user_id) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("rankedqueue.InsertEntry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rankedqueue.InsertEntry: %w", err)
	}
	return n == 1, nil
}

func (r *Impl) DeleteEntry(ctx context.Context, db bun.IDB, userID string) (int64, error) {
	return r.DeleteEntries(ctx, db, []string{userID})
}

func (r *Impl) DeleteEntries(ctx context.Context, db bun.IDB, userIDs []string) (int64, error) {
	if len(userIDs) == 0 {
		return 0, nil
	}
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*QueueEntry)(nil)).
		Where("user_id IN (?)", bun.In(userIDs)).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("rankedqueue.DeleteEntries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rankedqueue.DeleteEntries: %w", err)
	}
	return n, nil
}

func (r *Impl) ListCandidates(ctx context.Context, db bun.IDB) ([]*CandidateRow, error) {
	db = r.resolveDB(db)
	var rows []*CandidateRow
	err := db.NewSelect().
		TableExpr("ranked_queue AS rq").
		ColumnExpr("rq.id, rq.user_id, rq.ranked_lp, rq.queue_start_time").
		ColumnExpr("COALESCE(up.status, '') AS status").
		ColumnExpr("EXISTS (SELECT 1 FROM ranked_loadouts rl WHERE rl.user_id = rq.user_id) AS has_loadout").
		Join("LEFT JOIN user_profiles AS up ON up.user_id = rq.user_id").
		OrderExpr("rq.queue_start_time ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("rankedqueue.ListCandidates: %w", err)
	}
	return rows, nil
}

func (r *Impl) Count(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	n, err := db.NewSelect().Model((*QueueEntry)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("rankedqueue.Count: %w", err)
	}
	return n, nil
}

func (r *Impl) DeleteStale(ctx context.Context, db bun.IDB, cutoff time.Time) ([]string, error) {
	db = r.resolveDB(db)
	var userIDs []string
	_, err := db.NewDelete().
		Model((*QueueEntry)(nil)).
		Where("queue_start_time < ?", cutoff).
		Returning("user_id").
		Exec(ctx, &userIDs)
	if err != nil {
		return nil, fmt.Errorf("rankedqueue.DeleteStale: %w", err)
	}
	return userIDs, nil
}

func (r *Impl) InsertMatch(ctx context.Context, db bun.IDB, m *Match) error {
	db = r.resolveDB(db)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	if _, err := db.NewInsert().Model(m).Exec(ctx); err != nil {
		return fmt.Errorf("rankedqueue.InsertMatch: %w", err)
	}
	return nil
}

func (r *Impl) LatestMatchFor(ctx context.Context, db bun.IDB, userID string) (*Match, error) {
	db = r.resolveDB(db)
	m := new(Match)
	err := db.NewSelect().
		Model(m).
		Where("user_id_1 = ? OR user_id_2 = ?", userID, userID).
		OrderExpr("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("rankedqueue.LatestMatchFor: %w", err)
	}
	return m, nil
}
