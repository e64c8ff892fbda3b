package simulate

import "os"

// ShowHelp prints usage information for the simulator.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`Skating Competition Simulator
=============================

Drives a full competition against a running scoring server: a heats round,
concurrent judge selections, a final judged with the skating system, and a
check of the closed result.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -fixture string
        YAML fixture with couples, skills and judges (default: generated)
  -couples int
        Couples to generate without a fixture (default 24)
  -judges int
        Judges to generate without a fixture (default 5)
  -heat-size int
        Couples per heat (default 6)
  -finalists int
        Couples advancing to the final (default 6)
  -seed int
        Seed for skills, heat draws and judging noise (default: time based)
  -save string
        Write the fixture used by this run to a YAML file
  -timeout duration
        HTTP request timeout (default 10s)
  -verbose
        Enable debug logging
  -help
        Show this help message

Examples:
  # Simulate a generated competition
  go run ./cmd/simulate

  # Replay a fixture
  go run ./cmd/simulate -fixture competition.yaml
`)
}
