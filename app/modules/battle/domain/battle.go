// Package battledomain describes the contract with the external battle service.
package battledomain

import "fmt"

// Kind selects the battle rules applied by the battle service.
type Kind string

const (
	KindRankedPvP  Kind = "RANKED_PVP"
	KindTournament Kind = "TOURNAMENT"
	KindTraining   Kind = "TRAINING"
	KindArena      Kind = "ARENA"
)

func (k Kind) Validate() error {
	switch k {
	case KindRankedPvP, KindTournament, KindTraining, KindArena:
		return nil
	}
	return fmt.Errorf("unknown battle kind %q", k)
}

// Subjects used on the bus.
const (
	CreateBattleSubject = "battle.create.v1"
	BattleFinishedTopic = "battle.finished.v1"
)

// Loadout is the equipment a participant is forced to use.
type Loadout struct {
	JutsuIDs      []string `json:"jutsuIds"`
	WeaponIDs     []string `json:"weaponIds"`
	ConsumableIDs []string `json:"consumableIds"`
}

// StatOverride levels every participant to a common baseline.
type StatOverride struct {
	Level        int `json:"level"`
	Health       int `json:"health"`
	Chakra       int `json:"chakra"`
	Stamina      int `json:"stamina"`
	Ninjutsu     int `json:"ninjutsu"`
	Genjutsu     int `json:"genjutsu"`
	Taijutsu     int `json:"taijutsu"`
	Bukijutsu    int `json:"bukijutsu"`
	Strength     int `json:"strength"`
	Speed        int `json:"speed"`
	Intelligence int `json:"intelligence"`
	Willpower    int `json:"willpower"`
}

// RankedStats is applied to both sides of a ranked match so the loadout
// decides the fight.
var RankedStats = StatOverride{
	Level:        100,
	Health:       5000,
	Chakra:       5000,
	Stamina:      5000,
	Ninjutsu:     150000,
	Genjutsu:     150000,
	Taijutsu:     150000,
	Bukijutsu:    150000,
	Strength:     100000,
	Speed:        100000,
	Intelligence: 100000,
	Willpower:    100000,
}

// Request asks the battle service to start a battle.
type Request struct {
	ParticipantIDs []string           `json:"participantIds"`
	ForcedLoadouts map[string]Loadout `json:"forcedLoadouts,omitempty"`
	StatOverride   *StatOverride      `json:"statOverride,omitempty"`
	Background     string             `json:"background"`
	Kind           Kind               `json:"battleKind"`
}

func (r Request) Validate() error {
	if len(r.ParticipantIDs) < 2 {
		return fmt.Errorf("battle needs at least two participants, got %d", len(r.ParticipantIDs))
	}
	return r.Kind.Validate()
}

// Result is the battle service reply.
type Result struct {
	Success  bool   `json:"success"`
	BattleID string `json:"battleId,omitempty"`
	Message  string `json:"message"`
}

// Finished is published by the battle service when a battle ends.
type Finished struct {
	BattleID string `json:"battleId"`
	WinnerID string `json:"winnerId"`
	Kind     Kind   `json:"battleKind"`
}
