package repository

import "time"

const (
	defaultShardCount            = 16
	defaultMetricsUpdateInterval = 5 * time.Second
)

// Option applies a configuration option to the MemStore.
type Option func(*MemStore)

// WithShardCount sets how many independently locked shards hold rounds.
func WithShardCount(n int) Option {
	return func(s *MemStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *MemStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
