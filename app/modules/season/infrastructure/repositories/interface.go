package seasondb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository persists seasons and per-user season rewards.
//
// Error semantics:
//   - ErrNotFound: GetSeason found no row
//   - ErrNoRowsAffected: UpdateSeason or DeleteSeason targeted a missing row
type Repository interface {
	// AcquireSeasonLock serializes season writes so exclusivity checks hold.
	AcquireSeasonLock(ctx context.Context, db bun.IDB) error

	GetSeason(ctx context.Context, db bun.IDB, id string) (*Season, error)
	ListSeasons(ctx context.Context, db bun.IDB) ([]*Season, error)
	// ListOpenSeasons returns seasons that have not ended.
	ListOpenSeasons(ctx context.Context, db bun.IDB) ([]*Season, error)
	// ListDueSeasons returns open seasons whose end date is before now.
	ListDueSeasons(ctx context.Context, db bun.IDB, now time.Time) ([]*Season, error)
	InsertSeason(ctx context.Context, db bun.IDB, s *Season) error
	UpdateSeason(ctx context.Context, db bun.IDB, s *Season) error
	DeleteSeason(ctx context.Context, db bun.IDB, id string) error
	// MarkEnded flips ended and reports whether this call did it.
	MarkEnded(ctx context.Context, db bun.IDB, id string) (bool, error)

	// InsertUserRewards skips users already holding a row for the season and
	// returns how many rows were written.
	InsertUserRewards(ctx context.Context, db bun.IDB, rows []*UserReward) (int64, error)
	ListUnclaimed(ctx context.Context, db bun.IDB, userID string) ([]*UserReward, error)
	// LockUnclaimed is ListUnclaimed with FOR UPDATE row locks.
	LockUnclaimed(ctx context.Context, db bun.IDB, userID string) ([]*UserReward, error)
	MarkClaimed(ctx context.Context, db bun.IDB, userID string, seasonIDs []string, at time.Time) (int64, error)
	DivisionCounts(ctx context.Context, db bun.IDB, seasonID string) ([]DivisionCount, error)
}
