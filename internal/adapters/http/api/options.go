package api

import (
	"golang.org/x/time/rate"

	"github.com/okian/skating/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithSubmitRateLimit caps judge submissions across all rounds to perSecond
// with the given burst. A non-positive perSecond disables the limit.
func WithSubmitRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.submitLimit = rate.Inf
			return
		}
		s.submitLimit = rate.Limit(perSecond)
		s.submitBurst = max(burst, 1)
	}
}

// WithLogger sets the logger used by handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
