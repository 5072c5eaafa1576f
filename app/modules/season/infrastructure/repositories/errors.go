package seasondb

import "errors"

var (
	ErrNotFound       = errors.New("season not found")
	ErrNoRowsAffected = errors.New("no rows affected")
)
