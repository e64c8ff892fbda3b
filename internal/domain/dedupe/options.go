package dedupe

type config struct {
	maxSize int
}

// Option applies a configuration option to the in-memory deduper.
type Option func(*config)

// WithMaxSize sets the maximum number of IDs to keep in memory.
// If maxSize > 0: bounded mode with least-recently-seen eviction.
// If maxSize <= 0: unbounded mode (no eviction, no size limit).
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		c.maxSize = maxSize
	}
}
