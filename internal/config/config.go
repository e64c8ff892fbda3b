// Package config defines service configuration structures and loading hooks.
//
// Values are layered from defaults, an optional YAML file and SKATING_
// environment variables, then checked with struct tags.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// ShutdownTimeout bounds the graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// QueueSize bounds the in-memory recompute queue.
	QueueSize int `koanf:"queue_size" validate:"gte=1"`

	// WorkerCount sets the number of recompute workers.
	WorkerCount int `koanf:"worker_count" validate:"gte=1"`

	// DedupeSize sets how many submission ids are remembered; 0 keeps all.
	DedupeSize int `koanf:"dedupe_size" validate:"gte=0"`

	// ShardCount configures the number of shards in the round store.
	ShardCount int `koanf:"shard_count" validate:"gte=1"`

	// HeatSize is the heat size used when a draw request names none.
	HeatSize int `koanf:"heat_size" validate:"gte=1"`

	// FinalistsCount is how many advance from a selection round without top_n.
	FinalistsCount int `koanf:"finalists_count" validate:"gte=1"`

	// MaxPlacement is the highest placement a judge may give in a final.
	MaxPlacement int `koanf:"max_placement" validate:"gte=1"`

	// SharedPlacements lets a judge give one placement to several finalists.
	SharedPlacements bool `koanf:"shared_placements"`

	// MinScore and MaxScore bound a single parameter score.
	MinScore float64 `koanf:"min_score"`
	MaxScore float64 `koanf:"max_score" validate:"gtefield=MinScore"`

	// SubmitRateLimit caps judge submissions per second; 0 disables it.
	SubmitRateLimit float64 `koanf:"submit_rate_limit" validate:"gte=0"`
	SubmitBurst     int     `koanf:"submit_burst" validate:"gte=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		LogFormat:       "text",
		Addr:            ":9080",
		ShutdownTimeout: 10 * time.Second,
		QueueSize:       10_000,
		WorkerCount:     runtime.NumCPU(),
		DedupeSize:      50_000,
		ShardCount:      16,
		HeatSize:        6,
		FinalistsCount:  6,
		MaxPlacement:    6,
		MinScore:        1,
		MaxScore:        10,
		SubmitBurst:     50,
	}
}
