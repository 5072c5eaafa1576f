package tournamentdb

import "errors"

var (
	ErrNotFound       = errors.New("tournament not found")
	ErrNoRowsAffected = errors.New("no rows affected")
)
