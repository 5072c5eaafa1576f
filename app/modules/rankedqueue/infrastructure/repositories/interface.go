package rankedqueuedb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository persists the ranked queue.
//
// Error semantics:
//   - ErrNotFound: GetEntry or LatestMatchFor found no row
//   - other errors: infrastructure failures
type Repository interface {
	// AcquireQueueLock takes the transaction-scoped lock serializing every
	// read-decide-write over the queue. db must be a transaction.
	AcquireQueueLock(ctx context.Context, db bun.IDB) error

	GetEntry(ctx context.Context, db bun.IDB, userID string) (*QueueEntry, error)
	// InsertEntry reports false when the user already has an entry.
	InsertEntry(ctx context.Context, db bun.IDB, entry *QueueEntry) (bool, error)
	DeleteEntry(ctx context.Context, db bun.IDB, userID string) (int64, error)
	DeleteEntries(ctx context.Context, db bun.IDB, userIDs []string) (int64, error)
	ListCandidates(ctx context.Context, db bun.IDB) ([]*CandidateRow, error)
	Count(ctx context.Context, db bun.IDB) (int, error)
	// DeleteStale removes entries queued before cutoff and returns their owners.
	DeleteStale(ctx context.Context, db bun.IDB, cutoff time.Time) ([]string, error)

	InsertMatch(ctx context.Context, db bun.IDB, m *Match) error
	LatestMatchFor(ctx context.Context, db bun.IDB, userID string) (*Match, error)
}
