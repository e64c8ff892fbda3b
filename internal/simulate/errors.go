package simulate

import "errors"

// Sentinel error kinds for this package.
var (
	ErrConfig       = errors.New("invalid simulation config")
	ErrFixture      = errors.New("invalid fixture")
	ErrUnexpected   = errors.New("unexpected response")
	ErrVerification = errors.New("result verification failed")
)
