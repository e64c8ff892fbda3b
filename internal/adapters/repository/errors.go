package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("round not found")
	ErrRoundExists  = errors.New("round already exists")
	ErrRoundClosed  = errors.New("round is closed")
	ErrHeatNotFound = errors.New("heat not found")
	ErrResultFrozen = errors.New("round result is final")
	ErrNoResult     = errors.New("round has no result yet")
)
