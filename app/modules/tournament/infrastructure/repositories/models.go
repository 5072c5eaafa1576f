package tournamentdb

import (
	"time"

	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Tournament is a live bracket. Completed tournaments only exist as Records.
type Tournament struct {
	bun.BaseModel `bun:"table:tournaments,alias:t"`

	ID             string                  `bun:"id,pk" json:"id"`
	Name           string                  `bun:"name,notnull" json:"name"`
	Image          string                  `bun:"image" json:"image"`
	Description    string                  `bun:"description" json:"description"`
	Type           tournamentdomain.Type   `bun:"type,notnull" json:"type"`
	ClanID         *string                 `bun:"clan_id,nullzero" json:"clanId,omitempty"`
	Rewards        rewards.Bundle          `bun:"rewards,type:jsonb,notnull" json:"rewards"`
	Status         tournamentdomain.Status `bun:"status,notnull" json:"status"`
	Round          int                     `bun:"round,notnull,default:1" json:"round"`
	RoundStartedAt *time.Time              `bun:"round_started_at,nullzero" json:"roundStartedAt,omitempty"`
	StartedAt      time.Time               `bun:"started_at,notnull" json:"startedAt"`
	CreatedBy      string                  `bun:"created_by,notnull" json:"createdBy"`
	CreatedAt      time.Time               `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// Match is one bracket slot pairing.
type Match struct {
	bun.BaseModel `bun:"table:tournament_matches,alias:tm"`

	ID           uuid.UUID                   `bun:"id,pk,type:uuid" json:"id"`
	TournamentID string                      `bun:"tournament_id,notnull" json:"tournamentId"`
	Round        int                         `bun:"round,notnull" json:"round"`
	Match        int                         `bun:"match,notnull" json:"match"`
	UserID1      *string                     `bun:"user_id1,nullzero" json:"userId1"`
	UserID2      *string                     `bun:"user_id2,nullzero" json:"userId2"`
	WinnerID     *string                     `bun:"winner_id,nullzero" json:"winnerId"`
	BattleID     *string                     `bun:"battle_id,nullzero" json:"battleId,omitempty"`
	State        tournamentdomain.MatchState `bun:"state,notnull" json:"state"`
	StartedAt    *time.Time                  `bun:"started_at,nullzero" json:"startedAt,omitempty"`
	CheckIn1At   *time.Time                  `bun:"check_in1_at,nullzero" json:"checkIn1At,omitempty"`
	CheckIn2At   *time.Time                  `bun:"check_in2_at,nullzero" json:"checkIn2At,omitempty"`
	CreatedAt    time.Time                   `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Bracket converts the row into the domain view.
func (m *Match) Bracket() tournamentdomain.Match {
	return tournamentdomain.Match{
		Seq:        m.Match,
		UserID1:    deref(m.UserID1),
		UserID2:    deref(m.UserID2),
		WinnerID:   deref(m.WinnerID),
		CheckedIn1: m.CheckIn1At != nil,
		CheckedIn2: m.CheckIn2At != nil,
	}
}

// Participants lists the seated users.
func (m *Match) Participants() []string {
	var out []string
	for _, id := range []*string{m.UserID1, m.UserID2} {
		if id != nil && *id != "" {
			out = append(out, *id)
		}
	}
	return out
}

// Record archives a completed tournament.
type Record struct {
	bun.BaseModel `bun:"table:tournament_records,alias:tr"`

	ID           uuid.UUID             `bun:"id,pk,type:uuid" json:"id"`
	TournamentID string                `bun:"tournament_id,notnull" json:"tournamentId"`
	Name         string                `bun:"name,notnull" json:"name"`
	Image        string                `bun:"image" json:"image"`
	Description  string                `bun:"description" json:"description"`
	Type         tournamentdomain.Type `bun:"type,notnull" json:"type"`
	Rewards      rewards.Bundle        `bun:"rewards,type:jsonb,notnull" json:"rewards"`
	WinnerID     *string               `bun:"winner_id,nullzero" json:"winnerId"`
	Rounds       int                   `bun:"rounds,notnull" json:"rounds"`
	Participants []string              `bun:"participants,array" json:"participants"`
	StartedAt    time.Time             `bun:"started_at,notnull" json:"startedAt"`
	CompletedAt  time.Time             `bun:"completed_at,notnull" json:"completedAt"`
}
