// Package seasondomain holds ranked season rules: divisions, reward tables
// and the exclusivity of active seasons.
package seasondomain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Black-And-White-Club/shinobi-ranked/app/shared/rewards"
)

// Division is a ranked tier derived from end-of-season LP.
type Division string

const (
	DivisionAcademy Division = "ACADEMY"
	DivisionGenin   Division = "GENIN"
	DivisionChunin  Division = "CHUNIN"
	DivisionJonin   Division = "JONIN"
	DivisionAnbu    Division = "ANBU"
	DivisionKage    Division = "KAGE"
)

// Divisions lists every division from lowest to highest.
var Divisions = []Division{
	DivisionAcademy,
	DivisionGenin,
	DivisionChunin,
	DivisionJonin,
	DivisionAnbu,
	DivisionKage,
}

// Floor returns the minimum LP of d.
func (d Division) Floor() int {
	switch d {
	case DivisionAcademy:
		return 0
	case DivisionGenin:
		return 900
	case DivisionChunin:
		return 1100
	case DivisionJonin:
		return 1300
	case DivisionAnbu:
		return 1500
	case DivisionKage:
		return 1800
	}
	return -1
}

func (d Division) IsValid() bool { return d.Floor() >= 0 }

// DivisionFor returns the highest division whose floor lp reaches.
func DivisionFor(lp int) Division {
	out := DivisionAcademy
	for _, d := range Divisions {
		if lp >= d.Floor() {
			out = d
		}
	}
	return out
}

// RewardTable maps each division to what its members receive.
type RewardTable map[Division]rewards.Bundle

// For returns the bundle for d, empty when the table has none.
func (t RewardTable) For(d Division) rewards.Bundle {
	return t[d]
}

func (t RewardTable) Validate() error {
	for d, b := range t {
		if !d.IsValid() {
			return fmt.Errorf("unknown division %q", d)
		}
		if err := b.Validate(); err != nil {
			return fmt.Errorf("division %s: %w", d, err)
		}
	}
	return nil
}

// Window is the time span of a season, inclusive at both ends.
type Window struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two windows share any instant.
func (w Window) Overlaps(o Window) bool {
	return !w.End.Before(o.Start) && !o.End.Before(w.Start)
}

// Contains reports whether t lies in the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

var ErrInvalidSeason = errors.New("invalid season")

// Draft is the editable part of a season.
type Draft struct {
	Name      string      `json:"name"`
	StartDate time.Time   `json:"startDate"`
	EndDate   time.Time   `json:"endDate"`
	Rewards   RewardTable `json:"rewards"`
}

func (d Draft) Window() Window { return Window{Start: d.StartDate, End: d.EndDate} }

func (d Draft) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSeason)
	}
	if d.StartDate.IsZero() || d.EndDate.IsZero() {
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidSeason)
	}
	if !d.EndDate.After(d.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", ErrInvalidSeason)
	}
	if err := d.Rewards.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSeason, err)
	}
	return nil
}
