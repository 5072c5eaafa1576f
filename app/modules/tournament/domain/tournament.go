// Package tournamentdomain holds the single-elimination bracket rules.
// Nothing here touches storage; the service feeds it the current round.
package tournamentdomain

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// DefaultRoundDuration is how long a round may run before undecided matches
// are resolved.
const DefaultRoundDuration = 30 * time.Minute

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

type Type string

const (
	TypeIndividual Type = "INDIVIDUAL"
	TypeClan       Type = "CLAN"
)

func (t Type) Validate() error {
	switch t {
	case TypeIndividual, TypeClan:
		return nil
	}
	return fmt.Errorf("unknown tournament type %q", t)
}

type MatchState string

const (
	MatchWaiting MatchState = "WAITING"
	MatchPlayed  MatchState = "PLAYED"
	MatchNoShow  MatchState = "NO_SHOW"
)

// Match is the bracket view of one match. Empty strings are empty seats.
type Match struct {
	Seq        int
	UserID1    string
	UserID2    string
	WinnerID   string
	CheckedIn1 bool
	CheckedIn2 bool
}

// Full reports whether both seats are taken.
func (m Match) Full() bool { return m.UserID1 != "" && m.UserID2 != "" }

// Seat returns 1 or 2 for a seated user, 0 otherwise.
func (m Match) Seat(userID string) int {
	switch {
	case userID == "":
		return 0
	case m.UserID1 == userID:
		return 1
	case m.UserID2 == userID:
		return 2
	}
	return 0
}

// CoinFlip returns true for seat one.
type CoinFlip func() bool

// RandomCoin is the production CoinFlip.
func RandomCoin() bool { return rand.IntN(2) == 0 }

// ResolveWinner decides who advances from m. A recorded winner stands. With
// both seats filled the only checked-in seat wins, and flip decides between
// two equally active seats. A lone seat advances on a bye. An empty match
// yields "".
func ResolveWinner(m Match, flip CoinFlip) string {
	if m.WinnerID != "" {
		return m.WinnerID
	}
	if m.Full() {
		switch {
		case m.CheckedIn1 && !m.CheckedIn2:
			return m.UserID1
		case m.CheckedIn2 && !m.CheckedIn1:
			return m.UserID2
		}
		if flip() {
			return m.UserID1
		}
		return m.UserID2
	}
	if m.UserID1 != "" {
		return m.UserID1
	}
	return m.UserID2
}

// Pair is a next-round match. UserID2 is empty for a bye.
type Pair struct {
	UserID1 string
	UserID2 string
}

// PlanNextRound pairs the winners of consecutive matches, in sequence order.
// A pair with a single winner carries it forward as a bye.
func PlanNextRound(round []Match, flip CoinFlip) []Pair {
	var out []Pair
	for i := 0; i < len(round); i += 2 {
		a := ResolveWinner(round[i], flip)
		b := ""
		if i+1 < len(round) {
			b = ResolveWinner(round[i+1], flip)
		}
		if a == "" {
			a, b = b, ""
		}
		if a == "" {
			continue
		}
		out = append(out, Pair{UserID1: a, UserID2: b})
	}
	return out
}

// RoundOver reports whether the round ran out of time or every match has a
// recorded winner.
func RoundOver(now, roundStartedAt time.Time, duration time.Duration, round []Match) bool {
	if now.After(roundStartedAt.Add(duration)) {
		return true
	}
	for _, m := range round {
		if m.WinnerID == "" {
			return false
		}
	}
	return len(round) > 0
}

// FirstFreeSeat returns the index and seat (1 or 2) of the first open slot.
func FirstFreeSeat(round []Match) (index, seat int, ok bool) {
	for i, m := range round {
		if m.UserID1 == "" {
			return i, 1, true
		}
		if m.UserID2 == "" {
			return i, 2, true
		}
	}
	return 0, 0, false
}

// NewID derives a readable, unique tournament id from its name.
func NewID(name string) string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	base := slug.Make(name)
	if base == "" {
		return suffix
	}
	if len(base) > 48 {
		base = strings.TrimRight(base[:48], "-")
	}
	return base + "-" + suffix
}

var ErrInvalidTournament = errors.New("invalid tournament")

// Draft is what a creator submits.
type Draft struct {
	Name        string         `json:"name"`
	Image       string         `json:"image"`
	Description string         `json:"description"`
	Type        Type           `json:"type"`
	ClanID      string         `json:"clanId,omitempty"`
	Rewards     rewards.Bundle `json:"rewards"`
	// StartsAt accepts RFC 3339 or phrases like "tomorrow at 6pm".
	StartsAt string `json:"startsAt"`
	Timezone string `json:"timezone,omitempty"`
}

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTournament)
	}
	if err := d.Type.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTournament, err)
	}
	if d.Type == TypeClan && d.ClanID == "" {
		return fmt.Errorf("%w: clan tournaments need a clan", ErrInvalidTournament)
	}
	if d.Type == TypeIndividual && d.ClanID != "" {
		return fmt.Errorf("%w: individual tournaments have no clan", ErrInvalidTournament)
	}
	if err := d.Rewards.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTournament, err)
	}
	if strings.TrimSpace(d.StartsAt) == "" {
		return fmt.Errorf("%w: start time is required", ErrInvalidTournament)
	}
	return nil
}
