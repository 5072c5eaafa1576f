package rankedqueuedb

import "errors"

var (
	ErrNotFound       = errors.New("queue entry not found")
	ErrNoRowsAffected = errors.New("no rows affected")
)
