package seasonservice

import (
	"errors"

	seasondomain "github.com/Black-And-White-Club/shinobi-ranked/app/modules/season/domain"
)

var (
	ErrPermissionDenied   = errors.New("you do not have permission to manage seasons")
	ErrSeasonActive       = errors.New("a season is already active")
	ErrSeasonOverlap      = errors.New("season dates overlap another season")
	ErrSeasonNotFound     = errors.New("season not found")
	ErrSeasonEnded        = errors.New("season has already ended")
	ErrNoUnclaimedRewards = errors.New("no unclaimed season rewards")
)

// IsFailure reports whether err is an expected rejection.
func IsFailure(err error) bool {
	for _, f := range []error{
		ErrPermissionDenied,
		ErrSeasonActive,
		ErrSeasonOverlap,
		ErrSeasonNotFound,
		ErrSeasonEnded,
		ErrNoUnclaimedRewards,
		seasondomain.ErrInvalidSeason,
	} {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}
