package loadoutservice

import (
	"errors"
	"fmt"
)

// ErrInvalidSelection wraps every rejected loadout update.
var ErrInvalidSelection = errors.New("invalid loadout selection")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidSelection, fmt.Sprintf(format, args...))
}

// IsFailure reports whether err is an expected rejection rather than an
// infrastructure error.
func IsFailure(err error) bool {
	return errors.Is(err, ErrInvalidSelection)
}
