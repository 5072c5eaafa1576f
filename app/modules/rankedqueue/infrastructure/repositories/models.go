package rankedqueuedb

import (
	"time"

	rankedqueuedomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/domain"
	profiledomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/profile/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// QueueEntry is one waiting player. RankedLP is frozen at enqueue.
type QueueEntry struct {
	bun.BaseModel `bun:"table:ranked_queue,alias:rq"`

	ID             uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	UserID         string    `bun:"user_id,notnull,unique" json:"userId"`
	RankedLP       int       `bun:"ranked_lp,notnull" json:"rankedLp"`
	QueueStartTime time.Time `bun:"queue_start_time,notnull" json:"queueStartTime"`
}

// CandidateRow is a queue entry joined with owner status and loadout presence.
type CandidateRow struct {
	ID             uuid.UUID            `bun:"id"`
	UserID         string               `bun:"user_id"`
	RankedLP       int                  `bun:"ranked_lp"`
	QueueStartTime time.Time            `bun:"queue_start_time"`
	Status         profiledomain.Status `bun:"status"`
	HasLoadout     bool                 `bun:"has_loadout"`
}

// Candidate converts the row for the pairing rules.
func (c *CandidateRow) Candidate() rankedqueuedomain.Candidate {
	return rankedqueuedomain.Candidate{
		EntryID:        c.ID.String(),
		UserID:         c.UserID,
		RankedLP:       c.RankedLP,
		QueueStartTime: c.QueueStartTime,
		Queued:         c.Status == profiledomain.StatusQueued,
		HasLoadout:     c.HasLoadout,
	}
}

// Match logs a committed ranked pairing so pollers can find their battle.
type Match struct {
	bun.BaseModel `bun:"table:ranked_matches,alias:rm"`

	BattleID  string    `bun:"battle_id,pk" json:"battleId"`
	UserID1   string    `bun:"user_id_1,notnull" json:"userId1"`
	UserID2   string    `bun:"user_id_2,notnull" json:"userId2"`
	LP1       int       `bun:"lp_1,notnull" json:"lp1"`
	LP2       int       `bun:"lp_2,notnull" json:"lp2"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"createdAt"`
}

// Includes reports whether userID played in the match.
func (m *Match) Includes(userID string) bool {
	return m.UserID1 == userID || m.UserID2 == userID
}
