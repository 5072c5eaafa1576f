package tournamentdomain

import "time"

const (
	UpdatedTopic   = "tournament.updated.v1"
	CompletedTopic = "tournament.completed.v1"
)

// Updated is published whenever a tournament's bracket changes.
type Updated struct {
	TournamentID string    `json:"tournamentId"`
	Status       Status    `json:"status"`
	Round        int       `json:"round"`
	At           time.Time `json:"at"`
}

// Completed is published once the final is resolved and the live rows are
// archived.
type Completed struct {
	TournamentID string   `json:"tournamentId"`
	RecordID     string   `json:"recordId"`
	Name         string   `json:"name"`
	WinnerID     string   `json:"winnerId,omitempty"`
	Rounds       int      `json:"rounds"`
	Participants []string `json:"participants"`
}
