package tournamentservice

import (
	"errors"

	tournamentdomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/tournament/domain"
)

var (
	ErrPermissionDenied     = errors.New("you do not have permission to host this tournament")
	ErrTournamentNotFound   = errors.New("tournament not found")
	ErrTournamentStarted    = errors.New("tournament has already started")
	ErrTournamentNotStarted = errors.New("tournament has not started")
	ErrAlreadyJoined        = errors.New("already joined this tournament")
	ErrNotClanMember        = errors.New("you are not a member of the hosting clan")
	ErrUserNotFound         = errors.New("user not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrNotInMatch           = errors.New("you are not in this match")
	ErrNotCurrentRound      = errors.New("match is not in the current round")
	ErrMatchDecided         = errors.New("match already has a winner")
	ErrBattleInProgress     = errors.New("battle already started for this match")
	ErrNoOpponent           = errors.New("match has no opponent yet")
)

// IsFailure reports whether err is an expected rejection.
func IsFailure(err error) bool {
	for _, f := range []error{
		ErrPermissionDenied,
		ErrTournamentNotFound,
		ErrTournamentStarted,
		ErrTournamentNotStarted,
		ErrAlreadyJoined,
		ErrNotClanMember,
		ErrUserNotFound,
		ErrMatchNotFound,
		ErrNotInMatch,
		ErrNotCurrentRound,
		ErrMatchDecided,
		ErrBattleInProgress,
		ErrNoOpponent,
		tournamentdomain.ErrInvalidTournament,
	} {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}
