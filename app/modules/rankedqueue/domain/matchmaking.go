// Package rankedqueuedomain holds the pairing rules of the ranked queue.
package rankedqueuedomain

import (
	"fmt"
	"sort"
	"time"
)

// StaleEntryAge is how long an entry may wait before cleanup removes it.
const StaleEntryAge = 7 * 24 * time.Hour

// ToleranceStep widens the LP radius to Radius while the oldest entry has
// waited less than Below.
type ToleranceStep struct {
	Below  time.Duration
	Radius int
}

// ToleranceSteps is ordered by Below. Max applies once every step is exceeded.
type ToleranceSteps struct {
	Steps []ToleranceStep
	Max   int
}

// DefaultToleranceSteps grows the radius by 50 LP per minute of waiting, capped at 300.
var DefaultToleranceSteps = ToleranceSteps{
	Steps: []ToleranceStep{
		{Below: 60 * time.Second, Radius: 50},
		{Below: 120 * time.Second, Radius: 100},
		{Below: 180 * time.Second, Radius: 150},
		{Below: 240 * time.Second, Radius: 200},
		{Below: 300 * time.Second, Radius: 250},
	},
	Max: 300,
}

// Radius returns the allowed LP difference after waiting elapsed.
func (t ToleranceSteps) Radius(elapsed time.Duration) int {
	for _, s := range t.Steps {
		if elapsed < s.Below {
			return s.Radius
		}
	}
	return t.Max
}

// Validate checks the steps are strictly increasing in both fields.
func (t ToleranceSteps) Validate() error {
	prevBelow, prevRadius := time.Duration(0), -1
	for i, s := range t.Steps {
		if s.Below <= prevBelow {
			return fmt.Errorf("tolerance step %d: threshold %s is not after %s", i, s.Below, prevBelow)
		}
		if s.Radius <= prevRadius || s.Radius < 0 {
			return fmt.Errorf("tolerance step %d: radius %d does not widen", i, s.Radius)
		}
		prevBelow, prevRadius = s.Below, s.Radius
	}
	if t.Max < prevRadius {
		return fmt.Errorf("tolerance max %d is below the last step radius %d", t.Max, prevRadius)
	}
	return nil
}

// Candidate is a queue entry joined with its owner's live state.
type Candidate struct {
	EntryID        string
	UserID         string
	RankedLP       int
	QueueStartTime time.Time
	Queued         bool
	HasLoadout     bool
}

// Pairing is the outcome of PickOpponent.
type Pairing struct {
	Oldest   Candidate
	Opponent Candidate
	Radius   int
}

// SortByWait orders candidates oldest first. Ties break on user id so the
// order is stable between calls.
func SortByWait(cands []Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].QueueStartTime.Equal(cands[j].QueueStartTime) {
			return cands[i].UserID < cands[j].UserID
		}
		return cands[i].QueueStartTime.Before(cands[j].QueueStartTime)
	})
}

// PickOpponent pairs the longest-waiting candidate with the closest-LP
// candidate inside the radius earned by its wait. Equal distances go to the
// candidate that waited longer. ok is false when nobody is close enough.
func PickOpponent(cands []Candidate, now time.Time, steps ToleranceSteps) (Pairing, bool) {
	if len(cands) < 2 {
		return Pairing{}, false
	}
	sorted := append([]Candidate(nil), cands...)
	SortByWait(sorted)

	oldest := sorted[0]
	elapsed := now.Sub(oldest.QueueStartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	radius := steps.Radius(elapsed)

	best, bestDiff := -1, 0
	for i := 1; i < len(sorted); i++ {
		diff := abs(sorted[i].RankedLP - oldest.RankedLP)
		if diff > radius {
			continue
		}
		if best == -1 || diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	if best == -1 {
		return Pairing{}, false
	}
	return Pairing{Oldest: oldest, Opponent: sorted[best], Radius: radius}, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
