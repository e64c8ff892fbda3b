package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted         = errors.New("service not started")
	ErrInvalidRound       = errors.New("invalid round")
	ErrWrongKind          = errors.New("operation not supported for this round kind")
	ErrInvalidSubmission  = errors.New("invalid submission")
	ErrUnknownParticipant = errors.New("participant not in round")
	ErrUnknownParameter   = errors.New("parameter not in round")
)
