// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/skating/internal/adapters/mq/queue"
	workerpool "github.com/okian/skating/internal/adapters/mq/worker"
	"github.com/okian/skating/internal/adapters/repository"
	"github.com/okian/skating/internal/domain/dedupe"
	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/ranking"
	"github.com/okian/skating/internal/domain/scoring"
	"github.com/okian/skating/internal/domain/types"
	"github.com/okian/skating/pkg/logger"
	"github.com/okian/skating/pkg/metrics"
)

// RoundSpec describes a round to create. An empty ID is generated.
type RoundSpec struct {
	ID            string
	CompetitionID string
	Kind          model.RoundKind
	Participants  []string
	TopN          int
	ParameterIDs  []string
}

// Ack acknowledges a submission.
type Ack struct {
	// Duplicate is set when the submission id was already applied.
	Duplicate bool
	Revision  int64
	// Queued is false when the recompute queue was full. The submission is
	// stored regardless and the result is computed on the next read.
	Queued bool
}

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   *repository.MemStore
	deduper dedupe.Deduper
	queue   eventqueue.Queue
	scorer  scoring.Scorer
	engine  *ranking.Engine
	pool    *workerpool.Pool
	cancel  context.CancelFunc

	// Configuration
	workerCount      int
	queueSize        int
	dedupeSize       int
	shardCount       int
	heatSize         int
	finalistsCount   int
	maxPlacement     int
	sharedPlacements bool
	minScore         float64
	maxScore         float64

	started bool
	now     func() time.Time
	logger  logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      10000,
		dedupeSize:     dedupe.DefaultMaxSize,
		shardCount:     16,
		heatSize:       ranking.DefaultHeatSize,
		finalistsCount: ranking.DefaultFinalistsCount,
		maxPlacement:   ranking.DefaultMaxPlacement,
		minScore:       ranking.DefaultMinScore,
		maxScore:       ranking.DefaultMaxScore,
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting scoring service...")

	engineOpts := []ranking.EngineOption{ranking.WithMaxPlacement(s.maxPlacement)}
	if s.sharedPlacements {
		engineOpts = append(engineOpts, ranking.WithSharedPlacements())
	}
	s.engine = ranking.NewEngine(engineOpts...)
	s.scorer = scoring.NewDispatcher(
		scoring.WithFinalistsCount(s.finalistsCount),
		scoring.WithEngineOptions(engineOpts...),
		scoring.WithScoreRange(s.minScore, s.maxScore),
		scoring.WithClock(s.now),
	)

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.store = repository.NewMemStore(runCtx, repository.WithShardCount(s.shardCount))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.store, s.scorer, s.store)
	s.pool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int("shards", s.shardCount),
	)
	return nil
}

// Stop drains the recompute queue and shuts the service down.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping scoring service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Error(ctx, "worker pool shutdown failed", logger.Error(err))
	}
	_ = s.store.Close()
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// CreateRound validates and stores a new round.
func (s *Service) CreateRound(ctx context.Context, spec RoundSpec) (model.Round, error) {
	if err := s.ready(); err != nil {
		return model.Round{}, err
	}
	if !spec.Kind.Valid() {
		return model.Round{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRound, spec.Kind)
	}
	if spec.TopN < 0 {
		return model.Round{}, fmt.Errorf("%w: negative top_n", ErrInvalidRound)
	}
	if err := uniqueIDs("participant", spec.Participants); err != nil {
		return model.Round{}, err
	}
	if err := uniqueIDs("parameter", spec.ParameterIDs); err != nil {
		return model.Round{}, err
	}

	round := model.Round{
		ID:            strings.TrimSpace(spec.ID),
		CompetitionID: spec.CompetitionID,
		Kind:          spec.Kind,
		Participants:  slices.Clone(spec.Participants),
		TopN:          spec.TopN,
		ParameterIDs:  slices.Clone(spec.ParameterIDs),
		CreatedAt:     s.now(),
	}
	if round.ID == "" {
		round.ID = uuid.NewString()
	}
	if round.Participants == nil {
		round.Participants = []string{}
	}

	if err := s.store.CreateRound(ctx, round); err != nil {
		return model.Round{}, err
	}
	s.logger.Info(ctx, "round created",
		logger.String("round_id", round.ID),
		logger.String("kind", string(round.Kind)),
		logger.Int("participants", len(round.Participants)),
	)
	return round, nil
}

// GetRound returns a round.
func (s *Service) GetRound(ctx context.Context, roundID string) (model.Round, error) {
	if err := s.ready(); err != nil {
		return model.Round{}, err
	}
	return s.store.Round(ctx, roundID)
}

// AllocateHeats draws the participants of a selection round into heats. A
// non-zero seed makes the draw reproducible; heatSize <= 0 uses the default.
func (s *Service) AllocateHeats(ctx context.Context, roundID string, heatSize int, seed int64) (model.Round, error) {
	if err := s.ready(); err != nil {
		return model.Round{}, err
	}
	round, err := s.store.Round(ctx, roundID)
	if err != nil {
		return model.Round{}, err
	}
	if !round.Kind.IsSelection() {
		return model.Round{}, fmt.Errorf("%w: heats need a selection round, got %s", ErrWrongKind, round.Kind)
	}
	if heatSize <= 0 {
		heatSize = s.heatSize
	}

	var shuffle ranking.Shuffler
	if seed != 0 {
		shuffle = rand.New(rand.NewSource(seed)).Shuffle //nolint:gosec // draw order, not security
	}
	heats, err := ranking.AllocateHeats(round.Participants, heatSize, shuffle)
	if err != nil {
		return model.Round{}, err
	}
	for i := range heats {
		heats[i].ID = uuid.NewString()
	}

	round, err = s.store.SetHeats(ctx, roundID, heats)
	if err != nil {
		return model.Round{}, err
	}
	s.logger.Info(ctx, "heats allocated",
		logger.String("round_id", roundID),
		logger.Int("heats", len(heats)),
		logger.Int("heat_size", heatSize),
	)
	return round, nil
}

// CompleteHeat marks a heat as judged. Its selected list holds the heat's
// participants that at least one judge picked, most picked first.
func (s *Service) CompleteHeat(ctx context.Context, roundID string, number int) (model.Heat, error) {
	if err := s.ready(); err != nil {
		return model.Heat{}, err
	}
	snap, err := s.store.Snapshot(ctx, roundID)
	if err != nil {
		return model.Heat{}, err
	}
	if !snap.Round.Kind.IsSelection() {
		return model.Heat{}, fmt.Errorf("%w: %s has no heats", ErrWrongKind, snap.Round.Kind)
	}
	idx := slices.IndexFunc(snap.Round.Heats, func(h model.Heat) bool { return h.Number == number })
	if idx < 0 {
		return model.Heat{}, fmt.Errorf("%w: %s/%d", repository.ErrHeatNotFound, roundID, number)
	}

	tallies, err := ranking.TallySelections(snap.Selections)
	if err != nil {
		return model.Heat{}, err
	}
	members := snap.Round.Heats[idx].Participants
	selected := []string{}
	for _, t := range tallies {
		if slices.Contains(members, t.ParticipantID) {
			selected = append(selected, t.ParticipantID)
		}
	}
	return s.store.CompleteHeat(ctx, roundID, number, selected)
}

// SubmitRanking stores one judge's placements for the finalists of a final.
func (s *Service) SubmitRanking(ctx context.Context, roundID, submissionID string, r model.JudgeRanking) (Ack, error) {
	check := func(round model.Round) error {
		if round.Kind != model.KindFinal {
			return fmt.Errorf("%w: rankings need a final, got %s", ErrWrongKind, round.Kind)
		}
		if len(r.Placements) == 0 {
			return fmt.Errorf("%w: no placements", ErrInvalidSubmission)
		}
		for id := range r.Placements {
			if !slices.Contains(round.Participants, id) {
				return fmt.Errorf("%w: %q", ErrUnknownParticipant, id)
			}
		}
		_, err := s.engine.Rank([]model.JudgeRanking{r}, round.Participants)
		return err
	}
	write := func() (int64, error) {
		if r.TS.IsZero() {
			r.TS = s.now()
		}
		return s.store.PutRanking(ctx, roundID, r)
	}
	return s.submit(ctx, "ranking", roundID, submissionID, r.JudgeID, check, write)
}

// SubmitSelection stores one judge's picks for a selection round.
func (s *Service) SubmitSelection(ctx context.Context, roundID, submissionID string, sel model.JudgeSelection) (Ack, error) {
	check := func(round model.Round) error {
		if !round.Kind.IsSelection() {
			return fmt.Errorf("%w: selections need a heats or semifinal round, got %s", ErrWrongKind, round.Kind)
		}
		if _, err := ranking.TallySelections([]model.JudgeSelection{sel}); err != nil {
			return err
		}
		for _, id := range sel.Selected {
			if len(round.Participants) > 0 && !slices.Contains(round.Participants, id) {
				return fmt.Errorf("%w: %q", ErrUnknownParticipant, id)
			}
		}
		return nil
	}
	write := func() (int64, error) {
		if sel.TS.IsZero() {
			sel.TS = s.now()
		}
		return s.store.PutSelection(ctx, roundID, sel)
	}
	return s.submit(ctx, "selection", roundID, submissionID, sel.JudgeID, check, write)
}

// SubmitScores stores one judge's parameter scores for one performance.
func (s *Service) SubmitScores(ctx context.Context, roundID, submissionID string, set model.ScoreSet) (Ack, error) {
	check := func(round model.Round) error {
		if round.Kind != model.KindParameters {
			return fmt.Errorf("%w: scores need a parameters round, got %s", ErrWrongKind, round.Kind)
		}
		if len(set.Scores) == 0 {
			return fmt.Errorf("%w: no scores", ErrInvalidSubmission)
		}
		if len(round.Participants) > 0 && !slices.Contains(round.Participants, set.PerformanceID) {
			return fmt.Errorf("%w: %q", ErrUnknownParticipant, set.PerformanceID)
		}
		for param := range set.Scores {
			if len(round.ParameterIDs) > 0 && !slices.Contains(round.ParameterIDs, param) {
				return fmt.Errorf("%w: %q", ErrUnknownParameter, param)
			}
		}
		_, err := ranking.AggregateParameters([]model.ScoreSet{set}, nil, ranking.WithScoreRange(s.minScore, s.maxScore))
		return err
	}
	write := func() (int64, error) {
		if set.TS.IsZero() {
			set.TS = s.now()
		}
		return s.store.PutScores(ctx, roundID, set)
	}
	return s.submit(ctx, "scores", roundID, submissionID, set.JudgeID, check, write)
}

// submit runs the shared submission path: validate, dedupe, write, then ask
// for a background recompute.
func (s *Service) submit(ctx context.Context, kind, roundID, submissionID, judgeID string,
	check func(model.Round) error, write func() (int64, error),
) (Ack, error) {
	if err := s.ready(); err != nil {
		return Ack{}, err
	}
	if strings.TrimSpace(judgeID) == "" {
		metrics.RecordSubmissionRejected("invalid")
		return Ack{}, fmt.Errorf("%w: missing judge id", ErrInvalidSubmission)
	}

	round, err := s.store.Round(ctx, roundID)
	if err != nil {
		metrics.RecordSubmissionRejected("not_found")
		return Ack{}, err
	}
	if round.Closed {
		metrics.RecordSubmissionRejected("closed")
		return Ack{}, fmt.Errorf("%w: %s", repository.ErrRoundClosed, roundID)
	}
	if err := check(round); err != nil {
		metrics.RecordSubmissionRejected("invalid")
		return Ack{}, err
	}

	dedupeKey := ""
	if submissionID != "" {
		dedupeKey = roundID + "\x00" + submissionID
	}
	if dedupeKey != "" && s.deduper.SeenAndRecord(ctx, dedupeKey) {
		metrics.RecordSubmissionDuplicate()
		s.logger.Debug(ctx, "duplicate submission",
			logger.String("round_id", roundID),
			logger.String("submission_id", submissionID),
		)
		return Ack{Duplicate: true}, nil
	}

	rev, err := write()
	if err != nil {
		if dedupeKey != "" {
			s.deduper.Unrecord(ctx, dedupeKey)
		}
		metrics.RecordSubmissionRejected(rejectReason(err))
		return Ack{}, err
	}
	metrics.RecordSubmission(kind)

	queued := s.queue.Enqueue(ctx, model.RoundChanged{RoundID: roundID, Revision: rev, TS: s.now()})
	if !queued {
		s.logger.Warn(ctx, "recompute queue full, result will be computed on read",
			logger.String("round_id", roundID),
			logger.Int64("revision", rev),
		)
	}
	s.logger.Debug(ctx, "submission accepted",
		logger.String("round_id", roundID),
		logger.String("kind", kind),
		logger.String("judge_id", judgeID),
		logger.Int64("revision", rev),
	)
	return Ack{Revision: rev, Queued: queued}, nil
}

// Result returns the result of a round at its current revision. A stored
// result is served when it is current; otherwise it is computed now. A closed
// round whose final result is missing gets it crystallized here.
func (s *Service) Result(ctx context.Context, roundID string) (types.Result, error) {
	if err := s.ready(); err != nil {
		return types.Result{}, err
	}
	snap, err := s.store.Snapshot(ctx, roundID)
	if err != nil {
		return types.Result{}, err
	}

	stored, err := s.store.Result(ctx, roundID)
	switch {
	case err == nil && (stored.Final || (stored.Revision == snap.Revision && !snap.Round.Closed)):
		return stored, nil
	case err != nil && !errors.Is(err, repository.ErrNoResult):
		return types.Result{}, err
	}

	res, err := s.compute(ctx, snap)
	if err != nil {
		return types.Result{}, err
	}
	if _, err := s.store.SaveResult(ctx, res); err != nil && !errors.Is(err, repository.ErrResultFrozen) {
		s.logger.Warn(ctx, "could not store computed result", logger.String("round_id", roundID), logger.Error(err))
	}
	return res, nil
}

// CloseRound freezes a round and crystallizes its final result. Closing an
// already closed round returns the stored final result.
func (s *Service) CloseRound(ctx context.Context, roundID string) (types.Result, error) {
	if err := s.ready(); err != nil {
		return types.Result{}, err
	}
	if _, err := s.store.CloseRound(ctx, roundID); err != nil {
		return types.Result{}, err
	}
	snap, err := s.store.Snapshot(ctx, roundID)
	if err != nil {
		return types.Result{}, err
	}
	res, err := s.compute(ctx, snap)
	if err != nil {
		return types.Result{}, err
	}
	res.Final = true

	if _, err := s.store.SaveResult(ctx, res); err != nil {
		if errors.Is(err, repository.ErrResultFrozen) {
			return s.store.Result(ctx, roundID)
		}
		return types.Result{}, err
	}
	metrics.RecordRoundClosed()
	s.logger.Info(ctx, "round closed",
		logger.String("round_id", roundID),
		logger.Int64("revision", res.Revision),
		logger.Int("standings", len(res.Standings)),
	)
	return res, nil
}

func (s *Service) compute(ctx context.Context, snap model.Snapshot) (types.Result, error) {
	start := time.Now()
	res, err := s.scorer.Score(ctx, snap)
	latency := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordAggregation(string(snap.Round.Kind), "error", latency)
		return types.Result{}, err
	}
	metrics.RecordAggregation(string(snap.Round.Kind), "ok", latency)
	return res, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		ctx := context.Background()
		stats["queueLength"] = s.queue.Len(ctx)
		stats["rounds"] = s.store.Count(ctx)
		stats["submissionIds"] = s.deduper.Size()
	}

	return stats
}

func uniqueIDs(what string, ids []string) error {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: empty %s id", ErrInvalidRound, what)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %w: %s %q", ErrInvalidRound, ranking.ErrDuplicateParticipant, what, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, repository.ErrRoundClosed):
		return "closed"
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	default:
		return "store_error"
	}
}
