// Package simulate drives a whole competition against a running scoring
// server: heats, judge selections, a final and its verification.
package simulate

import (
	"fmt"
	"time"
)

// Default simulation settings.
const (
	DefaultCouples   = 24
	DefaultJudges    = 5
	DefaultHeatSize  = 6
	DefaultFinalists = 6
	DefaultTimeout   = 10 * time.Second
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	FixturePath string        // Optional YAML fixture; generated when empty
	Couples     int           // Couples to generate without a fixture
	Judges      int           // Judges to generate without a fixture
	HeatSize    int           // Couples per heat
	Finalists   int           // Couples advancing to the final
	Seed        int64         // Seed for skills, draws and judging noise
	Timeout     time.Duration // HTTP request timeout
}

// Report summarizes a finished simulation.
type Report struct {
	CompetitionID string
	HeatsRoundID  string
	FinalRoundID  string
	Heats         int
	Submissions   int
	Duplicates    int
	Finalists     []string
	Podium        []string
	Duration      time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Couples <= 0 {
		out.Couples = DefaultCouples
	}
	if out.Judges <= 0 {
		out.Judges = DefaultJudges
	}
	if out.HeatSize <= 0 {
		out.HeatSize = DefaultHeatSize
	}
	if out.Finalists <= 0 {
		out.Finalists = DefaultFinalists
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	return out
}

func (c Config) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base url is required", ErrConfig)
	}
	return nil
}
