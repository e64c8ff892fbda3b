package config_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/okian/skating/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
				convey.So(cfg.MaxPlacement, convey.ShouldEqual, 6)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SKATING_ADDR", ":8080")
			_ = os.Setenv("SKATING_QUEUE_SIZE", "100000")
			_ = os.Setenv("SKATING_WORKER_COUNT", "16")
			_ = os.Setenv("SKATING_SHARED_PLACEMENTS", "true")
			_ = os.Setenv("SKATING_MAX_SCORE", "6.5")
			_ = os.Setenv("SKATING_SHUTDOWN_TIMEOUT", "3s")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 100000)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.SharedPlacements, convey.ShouldBeTrue)
				convey.So(cfg.MaxScore, convey.ShouldEqual, 6.5)
				convey.So(cfg.ShutdownTimeout, convey.ShouldEqual, 3*time.Second)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
worker_count: 4
heat_size: 8
finalists_count: 7
max_placement: 7
min_score: 0
max_score: 6
submit_rate_limit: 25
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SKATING_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
				convey.So(cfg.HeatSize, convey.ShouldEqual, 8)
				convey.So(cfg.FinalistsCount, convey.ShouldEqual, 7)
				convey.So(cfg.MaxPlacement, convey.ShouldEqual, 7)
				convey.So(cfg.MinScore, convey.ShouldEqual, 0.0)
				convey.So(cfg.MaxScore, convey.ShouldEqual, 6.0)
				convey.So(cfg.SubmitRateLimit, convey.ShouldEqual, 25.0)
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
queue_size: 300
worker_count: 4
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SKATING_CONFIG", tmpFile)
			_ = os.Setenv("SKATING_ADDR", ":8080")
			_ = os.Setenv("SKATING_WORKER_COUNT", "32")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")   // Overridden by env
				convey.So(cfg.QueueSize, convey.ShouldEqual, 300)  // From file
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 32) // Overridden by env
				convey.So(cfg.HeatSize, convey.ShouldEqual, 6)     // From defaults
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SKATING_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("SKATING_CONFIG", "/non/existent/file.yaml")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("SKATING_ADDR", "")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "Addr")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file inverts the score range", func() {
			tmpFile := createTempConfigFile("min_score: 8\nmax_score: 3\n")
			defer func() { _ = os.Remove(tmpFile) }()

			_ = os.Setenv("SKATING_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then it is rejected", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

// Helper functions

func clearConfigEnvVars() {
	envVars := []string{
		"SKATING_CONFIG",
		"SKATING_ADDR",
		"SKATING_QUEUE_SIZE",
		"SKATING_WORKER_COUNT",
		"SKATING_SHARED_PLACEMENTS",
		"SKATING_MAX_SCORE",
		"SKATING_SHUTDOWN_TIMEOUT",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "skating-config-*.yaml")
	if err != nil {
		panic(err)
	}
	defer func() { _ = tmpFile.Close() }()

	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
