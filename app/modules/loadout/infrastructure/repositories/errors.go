package loadoutdb

import "errors"

// ErrNotFound indicates the user has no stored loadout.
var ErrNotFound = errors.New("loadout not found")
