package simulate

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Fixture describes the competition to simulate.
type Fixture struct {
	CompetitionID string   `yaml:"competition_id"`
	Couples       []Couple `yaml:"couples"`
	Judges        []string `yaml:"judges"`
	HeatSize      int      `yaml:"heat_size"`
	Finalists     int      `yaml:"finalists"`
	Seed          int64    `yaml:"seed"`
}

// Couple is a competitor with the true skill judges perceive through noise.
type Couple struct {
	ID    string  `yaml:"id"`
	Skill float64 `yaml:"skill"`
}

// LoadFixture reads a YAML fixture from path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFixture, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFixture, path, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// GenerateFixture builds a fixture with couples of random skill.
func GenerateFixture(cfg Config) *Fixture {
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // simulation noise
	f := &Fixture{
		CompetitionID: "sim-" + uuid.NewString()[:8],
		HeatSize:      cfg.HeatSize,
		Finalists:     cfg.Finalists,
		Seed:          cfg.Seed,
	}
	for i := range cfg.Couples {
		f.Couples = append(f.Couples, Couple{
			ID:    fmt.Sprintf("couple-%03d", i+1),
			Skill: rng.Float64() * 10,
		})
	}
	for i := range cfg.Judges {
		f.Judges = append(f.Judges, fmt.Sprintf("judge-%c", 'A'+rune(i%26)))
	}
	return f
}

// Marshal encodes the fixture as YAML so a generated run can be replayed.
func (f *Fixture) Marshal() ([]byte, error) {
	return yaml.Marshal(f)
}

func (f *Fixture) validate() error {
	switch {
	case len(f.Couples) == 0:
		return fmt.Errorf("%w: no couples", ErrFixture)
	case len(f.Judges) == 0:
		return fmt.Errorf("%w: no judges", ErrFixture)
	case f.Finalists > len(f.Couples):
		return fmt.Errorf("%w: %d finalists from %d couples", ErrFixture, f.Finalists, len(f.Couples))
	}
	seen := make(map[string]struct{}, len(f.Couples))
	for _, c := range f.Couples {
		if c.ID == "" {
			return fmt.Errorf("%w: couple without id", ErrFixture)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("%w: duplicate couple %q", ErrFixture, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return nil
}

func (f *Fixture) coupleIDs() []string {
	ids := make([]string, len(f.Couples))
	for i, c := range f.Couples {
		ids[i] = c.ID
	}
	return ids
}

func (f *Fixture) skills() map[string]float64 {
	out := make(map[string]float64, len(f.Couples))
	for _, c := range f.Couples {
		out[c.ID] = c.Skill
	}
	return out
}
