package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/skating/internal/simulate"
	"github.com/okian/skating/pkg/logger"
)

// defaultRunTimeout bounds a whole simulation.
const defaultRunTimeout = 5 * time.Minute

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		fixture   = flag.String("fixture", "", "YAML fixture with couples, skills and judges")
		couples   = flag.Int("couples", simulate.DefaultCouples, "Couples to generate without a fixture")
		judges    = flag.Int("judges", simulate.DefaultJudges, "Judges to generate without a fixture")
		heatSize  = flag.Int("heat-size", simulate.DefaultHeatSize, "Couples per heat")
		finalists = flag.Int("finalists", simulate.DefaultFinalists, "Couples advancing to the final")
		seed      = flag.Int64("seed", time.Now().UnixNano(), "Seed for skills, heat draws and judging noise")
		save      = flag.String("save", "", "Write the generated fixture to this YAML file")
		timeout   = flag.Duration("timeout", simulate.DefaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Enable debug logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	if err := logger.Init(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	cfg := simulate.Config{
		BaseURL:     *baseURL,
		FixturePath: *fixture,
		Couples:     *couples,
		Judges:      *judges,
		HeatSize:    *heatSize,
		Finalists:   *finalists,
		Seed:        *seed,
		Timeout:     *timeout,
	}

	if *save != "" && *fixture == "" {
		data, err := simulate.GenerateFixture(cfg).Marshal()
		if err == nil {
			err = os.WriteFile(*save, data, 0o600)
		}
		if err != nil {
			_, _ = fmt.Fprintln(os.Stderr, "failed to save fixture:", err)
			os.Exit(1)
		}
		cfg.FixturePath = *save
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	report, err := simulate.Run(ctx, cfg)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "simulation failed:", err)
		os.Exit(1)
	}
	_, _ = fmt.Fprintf(os.Stdout, "competition %s: %d heats, %d submissions, finalists %v, podium %v (%s)\n",
		report.CompetitionID, report.Heats, report.Submissions, report.Finalists, report.Podium, report.Duration)
}
