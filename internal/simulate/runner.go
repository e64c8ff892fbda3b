package simulate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/skating/pkg/logger"
)

// Run executes a complete simulated competition and verifies the final.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	fixture, err := loadOrGenerate(cfg)
	if err != nil {
		return nil, err
	}

	s := &simulation{
		client:  NewClient(cfg.BaseURL, cfg.Timeout),
		fixture: fixture,
		log:     logger.Named("simulate"),
		judges:  make(map[string]*judge, len(fixture.Judges)),
	}
	skills := fixture.skills()
	for _, id := range fixture.Judges {
		s.judges[id] = newJudge(id, skills, fixture.Seed)
	}
	return s.run(ctx)
}

func loadOrGenerate(cfg Config) (*Fixture, error) {
	if cfg.FixturePath == "" {
		return GenerateFixture(cfg), nil
	}
	f, err := LoadFixture(cfg.FixturePath)
	if err != nil {
		return nil, err
	}
	if f.HeatSize <= 0 {
		f.HeatSize = cfg.HeatSize
	}
	if f.Finalists <= 0 {
		f.Finalists = min(cfg.Finalists, len(f.Couples))
	}
	if f.CompetitionID == "" {
		f.CompetitionID = "sim-" + uuid.NewString()[:8]
	}
	return f, nil
}

type simulation struct {
	client  *Client
	fixture *Fixture
	log     logger.Logger
	judges  map[string]*judge

	heatCount   int
	submissions atomic.Int64
	duplicates  atomic.Int64
}

func (s *simulation) run(ctx context.Context) (*Report, error) {
	start := time.Now()
	f := s.fixture

	s.log.Info(ctx, "starting simulation",
		logger.String("competition", f.CompetitionID),
		logger.Int("couples", len(f.Couples)),
		logger.Int("judges", len(f.Judges)),
		logger.Int("heatSize", f.HeatSize),
		logger.Int("finalists", f.Finalists),
	)

	if err := s.client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	heats, err := s.heatsRound(ctx)
	if err != nil {
		return nil, fmt.Errorf("heats round failed: %w", err)
	}
	finalID := f.CompetitionID + "-final"
	final, err := s.final(ctx, finalID, heats.Advancing)
	if err != nil {
		return nil, fmt.Errorf("final failed: %w", err)
	}
	if err := Verify(final, heats.Advancing); err != nil {
		return nil, err
	}

	report := &Report{
		CompetitionID: f.CompetitionID,
		HeatsRoundID:  heats.RoundID,
		FinalRoundID:  finalID,
		Heats:         s.heatCount,
		Submissions:   int(s.submissions.Load()),
		Duplicates:    int(s.duplicates.Load()),
		Finalists:     heats.Advancing,
		Duration:      time.Since(start),
	}
	for _, st := range final.Standings[:min(3, len(final.Standings))] {
		report.Podium = append(report.Podium, st.ParticipantID)
	}

	s.log.Info(ctx, "simulation completed",
		logger.Int("submissions", report.Submissions),
		logger.Int("duplicates", report.Duplicates),
		logger.Any("podium", report.Podium),
		logger.Duration("duration", report.Duration),
	)
	return report, nil
}

// heatsRound draws the heats and lets every judge pick heat by heat. A
// judge's selection grows as heats are danced; each resubmission replaces
// the previous one.
func (s *simulation) heatsRound(ctx context.Context) (result, error) {
	f := s.fixture
	roundID := f.CompetitionID + "-heats"
	if _, err := s.client.CreateRound(ctx, roundID, f.CompetitionID, "heats", f.coupleIDs(), f.Finalists); err != nil {
		return result{}, err
	}
	drawn, err := s.client.AllocateHeats(ctx, roundID, f.HeatSize, f.Seed)
	if err != nil {
		return result{}, err
	}
	s.heatCount = len(drawn.Heats)

	perHeat := (f.Finalists+len(drawn.Heats)-1)/len(drawn.Heats) + 1
	var mu sync.Mutex
	picked := make(map[string][]string, len(f.Judges))

	for _, h := range drawn.Heats {
		g, gctx := errgroup.WithContext(ctx)
		for _, judgeID := range f.Judges {
			g.Go(func() error {
				j := s.judges[judgeID]
				mu.Lock()
				picked[judgeID] = append(picked[judgeID], j.pick(h.Participants, perHeat)...)
				selected := append([]string(nil), picked[judgeID]...)
				mu.Unlock()
				return s.submitSelection(gctx, roundID, judgeID, selected)
			})
		}
		if err := g.Wait(); err != nil {
			return result{}, err
		}
		done, err := s.client.CompleteHeat(ctx, roundID, h.Number)
		if err != nil {
			return result{}, err
		}
		s.log.Debug(ctx, "heat completed",
			logger.Int("heat", done.Number),
			logger.Any("selected", done.Selected),
		)
	}

	res, err := s.client.Result(ctx, roundID)
	if err != nil {
		return result{}, err
	}
	if len(res.Advancing) != f.Finalists {
		return result{}, fmt.Errorf("%w: %d couples advanced, want %d", ErrVerification, len(res.Advancing), f.Finalists)
	}
	return res, nil
}

// submitSelection sends a selection and replays it once with the same
// submission id; the replay must be acknowledged as a duplicate.
func (s *simulation) submitSelection(ctx context.Context, roundID, judgeID string, selected []string) error {
	id := uuid.NewString()
	if _, err := s.client.SubmitSelection(ctx, roundID, judgeID, id, selected); err != nil {
		return err
	}
	s.submissions.Add(1)

	replay, err := s.client.SubmitSelection(ctx, roundID, judgeID, id, selected)
	if err != nil {
		return err
	}
	if !replay.Duplicate {
		return fmt.Errorf("%w: replayed submission %s was applied twice", ErrVerification, id)
	}
	s.duplicates.Add(1)
	return nil
}

func (s *simulation) final(ctx context.Context, roundID string, finalists []string) (result, error) {
	f := s.fixture
	if _, err := s.client.CreateRound(ctx, roundID, f.CompetitionID, "final", finalists, 0); err != nil {
		return result{}, err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, judgeID := range f.Judges {
		g.Go(func() error {
			placements := s.judges[judgeID].place(finalists)
			if _, err := s.client.SubmitRanking(gctx, roundID, judgeID, uuid.NewString(), placements); err != nil {
				return err
			}
			s.submissions.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result{}, err
	}
	return s.client.Close(ctx, roundID)
}
