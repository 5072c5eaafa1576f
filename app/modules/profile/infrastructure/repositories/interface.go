package profiledb

import (
	"context"

	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
	"github.com/uptrace/bun"
)

// Repository is the profile store consumed by the ranked modules.
//
// Error semantics:
//   - ErrNotFound: GetUser found no row
//   - ErrNoRowsAffected: ApplyRewardBundle targeted a missing user
//   - other errors: infrastructure failures
type Repository interface {
	GetUser(ctx context.Context, db bun.IDB, userID string) (*Profile, error)
	GetUsers(ctx context.Context, db bun.IDB, userIDs []string) ([]*Profile, error)

	// SetStatus moves the listed users from expected to next and returns how
	// many rows changed. Users not in expected are left alone.
	SetStatus(ctx context.Context, db bun.IDB, userIDs []string, expected, next profiledomain.Status) (int64, error)

	ApplyRewardBundle(ctx context.Context, db bun.IDB, userID string, bundle rewards.Bundle) error

	// PrepareForBattle revives the users and sets them AWAKE.
	PrepareForBattle(ctx context.Context, db bun.IDB, userIDs []string) error

	// ListRanked returns every profile with positive ranked LP.
	ListRanked(ctx context.Context, db bun.IDB) ([]*Profile, error)
}

var _ rewards.Applier = (Repository)(nil)
