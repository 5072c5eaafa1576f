package rankedqueuedomain

import "time"

// MatchFoundTopic is published after a ranked pair is committed.
const MatchFoundTopic = "ranked.match.found.v1"

// MatchFound is the payload of MatchFoundTopic.
type MatchFound struct {
	BattleID  string    `json:"battleId"`
	UserIDs   [2]string `json:"userIds"`
	MatchedAt time.Time `json:"matchedAt"`
}
