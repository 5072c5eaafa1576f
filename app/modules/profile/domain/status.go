package profiledomain

// Status is the coarse activity state of a character.
type Status string

const (
	StatusAwake        Status = "AWAKE"
	StatusQueued       Status = "QUEUED"
	StatusBattle       Status = "BATTLE"
	StatusHospitalized Status = "HOSPITALIZED"
	StatusAsleep       Status = "ASLEEP"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAwake, StatusQueued, StatusBattle, StatusHospitalized, StatusAsleep:
		return true
	}
	return false
}
