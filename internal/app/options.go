package service

import (
	"time"

	"github.com/okian/skating/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of recompute workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the recompute queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submission ids are remembered. Zero or less
// keeps every id.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		s.dedupeSize = size
	}
}

// WithShardCount sets the number of repository shards.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithHeatSize sets the heat size used when a request names none.
func WithHeatSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.heatSize = size
		}
	}
}

// WithFinalistsCount sets how many advance from a selection round that names no count.
func WithFinalistsCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.finalistsCount = n
		}
	}
}

// WithMaxPlacement sets the highest placement a judge may give in a final.
func WithMaxPlacement(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPlacement = n
		}
	}
}

// WithSharedPlacements lets one judge give the same placement to several finalists.
func WithSharedPlacements(shared bool) Option {
	return func(s *Service) {
		s.sharedPlacements = shared
	}
}

// WithScoreRange sets the accepted range of one parameter score.
func WithScoreRange(minScore, maxScore float64) Option {
	return func(s *Service) {
		if minScore <= maxScore {
			s.minScore = minScore
			s.maxScore = maxScore
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
