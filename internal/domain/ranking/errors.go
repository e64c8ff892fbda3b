package ranking

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidPlacement     = errors.New("invalid placement")
	ErrDuplicatePlacement   = errors.New("duplicate placement")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrInvalidHeatSize      = errors.New("invalid heat size")
	ErrInvalidTopN          = errors.New("invalid top n")
	ErrInvalidSelection     = errors.New("invalid selection")
	ErrInvalidScore         = errors.New("invalid score")
	ErrInvalidScoreSet      = errors.New("invalid score set")
)

// PlacementError reports a placement a judge gave that the engine refuses to
// compare. It unwraps to ErrInvalidPlacement or ErrDuplicatePlacement.
type PlacementError struct {
	JudgeID       string
	ParticipantID string
	Placement     int
	Err           error
}

// Error implements the error interface.
func (e *PlacementError) Error() string {
	return fmt.Sprintf("%v: judge=%q participant=%q placement=%d", e.Err, e.JudgeID, e.ParticipantID, e.Placement)
}

// Unwrap returns the underlying sentinel.
func (e *PlacementError) Unwrap() error { return e.Err }
