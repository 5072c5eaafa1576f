package rankedqueueservice

import (
	"context"
	"time"

	rankedqueuedb "github.com/Black-And-White-Club/shinobi-ranked/app/modules/rankedqueue/infrastructure/repositories"
)

// Service is the ranked matchmaker.
type Service interface {
	// Enqueue puts an AWAKE user in the queue and attempts a match right away.
	Enqueue(ctx context.Context, userID string) (*EnqueueResult, error)
	// LeaveQueue removes the user's entry and returns them to AWAKE.
	LeaveQueue(ctx context.Context, userID string) error
	// TryMatch pairs the oldest entry if an opponent is within tolerance.
	TryMatch(ctx context.Context) (MatchResult, error)
	// PollMatch runs TryMatch on behalf of userID, at most once at a time per
	// user, and reports the user's own outcome.
	PollMatch(ctx context.Context, userID string) (PollResult, error)
	Status(ctx context.Context, userID string) (QueueStatus, error)
	// CleanupStale drops entries older than olderThan and returns how many.
	CleanupStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// MatchResult is the outcome of one TryMatch. Matched is false when nobody
// was close enough.
type MatchResult struct {
	Matched  bool     `json:"matched"`
	BattleID string   `json:"battleId,omitempty"`
	UserIDs  []string `json:"userIds,omitempty"`
}

// Includes reports whether userID was paired.
func (m MatchResult) Includes(userID string) bool {
	for _, id := range m.UserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

type EnqueueResult struct {
	Entry *rankedqueuedb.QueueEntry `json:"entry"`
	Match MatchResult               `json:"match"`
}

// PollResult is the caller's view after a poll.
type PollResult struct {
	InFlight bool   `json:"inFlight"`
	InQueue  bool   `json:"inQueue"`
	Matched  bool   `json:"matched"`
	BattleID string `json:"battleId,omitempty"`
}

type QueueStatus struct {
	InQueue        bool       `json:"inQueue"`
	QueueStartTime *time.Time `json:"queueStartTime"`
	QueueCount     int        `json:"queueCount"`
}
