package repository

import "errors"

var ErrDBNotReady = errors.New("database not initialized")

// ErrStaleState is returned when a conditional write matched no row because
// the record left the state it was read in.
var ErrStaleState = errors.New("stale state")
