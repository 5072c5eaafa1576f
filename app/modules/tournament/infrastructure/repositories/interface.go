package tournamentdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists live tournaments, their matches and the archive.
//
// Error semantics:
//   - ErrNotFound: the tournament or match does not exist
//   - ErrNoRowsAffected: an update targeted a missing row
type Repository interface {
	// AcquireTournamentLock serializes mutations of one tournament.
	AcquireTournamentLock(ctx context.Context, db bun.IDB, id string) error

	GetTournament(ctx context.Context, db bun.IDB, id string) (*Tournament, error)
	InsertTournament(ctx context.Context, db bun.IDB, t *Tournament) error
	// UpdateProgress writes status, round and round_started_at.
	UpdateProgress(ctx context.Context, db bun.IDB, t *Tournament) error
	// DeleteTournament removes the tournament and all of its matches.
	DeleteTournament(ctx context.Context, db bun.IDB, id string) error
	// ListLiveIDs returns every tournament that is not yet archived.
	ListLiveIDs(ctx context.Context, db bun.IDB) ([]string, error)

	// ListMatches returns every match ordered by round then sequence.
	ListMatches(ctx context.Context, db bun.IDB, tournamentID string) ([]*Match, error)
	GetMatch(ctx context.Context, db bun.IDB, tournamentID string, matchID uuid.UUID) (*Match, error)
	// GetMatchByBattle finds the match a battle was started for.
	GetMatchByBattle(ctx context.Context, db bun.IDB, battleID string) (*Match, error)
	InsertMatches(ctx context.Context, db bun.IDB, matches []*Match) error
	// UpdateMatch writes the named columns of m.
	UpdateMatch(ctx context.Context, db bun.IDB, m *Match, columns ...string) error

	InsertRecord(ctx context.Context, db bun.IDB, r *Record) error
	ListRecords(ctx context.Context, db bun.IDB, limit int) ([]*Record, error)
}
