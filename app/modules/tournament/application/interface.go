package tournamentservice

import (
	"context"
	"time"

	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	tournamentdb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/infrastructure/repositories"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/identity"
	"github.com/google/uuid"
)

// Service runs tournament brackets. Reads advance the bracket as a side
// effect, so Get may start, advance or complete a tournament.
type Service interface {
	// Get returns nil once the tournament has been archived.
	Get(ctx context.Context, id string) (*View, error)
	Create(ctx context.Context, actor identity.Actor, draft tournamentdomain.Draft) (*tournamentdb.Tournament, error)
	// Join seats the user in the first free slot of the opening round.
	Join(ctx context.Context, userID, tournamentID string) (*tournamentdb.Match, error)
	// JoinMatch checks the user in and starts the battle. A battle that
	// cannot be created is forfeited to the caller.
	JoinMatch(ctx context.Context, userID, tournamentID string, matchID uuid.UUID) (*JoinMatchResult, error)
	// RecordBattleResult stores the winner of a finished tournament battle
	// and reports whether a match was updated.
	RecordBattleResult(ctx context.Context, battleID, winnerID string) (bool, error)

	ListRecords(ctx context.Context, limit int) ([]*tournamentdb.Record, error)
	// ExportRecords renders the archive as an xlsx workbook.
	ExportRecords(ctx context.Context) ([]byte, error)
}

// DeadlineScheduler arranges for a tournament to be evaluated at a time
// without waiting for a reader.
type DeadlineScheduler interface {
	ScheduleDeadline(ctx context.Context, tournamentID string, at time.Time) error
}

// View is a tournament with its bracket.
type View struct {
	Tournament *tournamentdb.Tournament `json:"tournament,omitempty"`
	Matches    []*tournamentdb.Match    `json:"matches"`
	// Players maps user ids to display names.
	Players map[string]string `json:"players"`
	// Record is set when this read completed the tournament.
	Record *tournamentdb.Record `json:"record,omitempty"`
}

type JoinMatchResult struct {
	Match    *tournamentdb.Match `json:"match"`
	BattleID string              `json:"battleId,omitempty"`
	Forfeit  bool                `json:"forfeit"`
}
