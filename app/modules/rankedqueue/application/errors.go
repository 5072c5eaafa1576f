package rankedqueueservice

import "errors"

// Expected rejections. They reach callers as errors but are reported to the
// UI as structured failures.
var (
	ErrAlreadyInQueue = errors.New("already in queue")
	ErrNotAwake       = errors.New("user is not awake")
	ErrNotInQueue     = errors.New("not in queue")
	ErrNoLoadout      = errors.New("no loadout found")
	ErrUserNotFound   = errors.New("user not found")
)

// ErrBattleCreationFailed is an infrastructure error: both entries stay queued.
var ErrBattleCreationFailed = errors.New("battle creation failed")

// IsFailure reports whether err is an expected rejection.
func IsFailure(err error) bool {
	return errors.Is(err, ErrAlreadyInQueue) ||
		errors.Is(err, ErrNotAwake) ||
		errors.Is(err, ErrNotInQueue) ||
		errors.Is(err, ErrNoLoadout) ||
		errors.Is(err, ErrUserNotFound)
}
