package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/types"
	"github.com/okian/skating/pkg/metrics"
)

// keyed keeps submissions in first-submission order while letting a later
// write for the same key replace the earlier one.
type keyed[T any] struct {
	index map[string]int
	items []T
}

func (k *keyed[T]) put(key string, item T) {
	if k.index == nil {
		k.index = make(map[string]int)
	}
	if i, ok := k.index[key]; ok {
		k.items[i] = item
		return
	}
	k.index[key] = len(k.items)
	k.items = append(k.items, item)
}

// roundState is everything stored for one round.
type roundState struct {
	round      model.Round
	revision   int64
	rankings   keyed[model.JudgeRanking]
	selections keyed[model.JudgeSelection]
	scores     keyed[model.ScoreSet]
	result     *types.Result
}

type shard struct {
	mu     sync.RWMutex
	rounds map[string]*roundState
}

// MemStore is an in-memory Store sharded by round id.
type MemStore struct {
	shards                []*shard
	shardCount            int
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopOnce sync.Once
	stopChan chan struct{}
}

var _ Store = (*MemStore)(nil)

// NewMemStore constructs a store with configuration options. Background
// metrics updates stop when ctx is done or Close is called.
func NewMemStore(ctx context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		shardCount:            defaultShardCount,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{rounds: make(map[string]*roundState)}
	}

	metrics.UpdateRepositoryShardCount(s.shardCount)
	s.startMetricsUpdater(ctx)

	return s
}

// Close stops the background metrics updater.
func (s *MemStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemStore) shardFor(roundID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(roundID))
	return s.shards[h.Sum32()%uint32(len(s.shards))] //nolint:gosec // shard count is small and positive
}

// CreateRound implements Store.CreateRound.
func (s *MemStore) CreateRound(ctx context.Context, round model.Round) error {
	defer observeWrite(time.Now())

	sh := s.shardFor(round.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.rounds[round.ID]; ok {
		return fmt.Errorf("%w: %s", ErrRoundExists, round.ID)
	}
	sh.rounds[round.ID] = &roundState{round: round.Clone()}
	return nil
}

// Round implements Store.Round.
func (s *MemStore) Round(ctx context.Context, roundID string) (model.Round, error) {
	defer observeRead(time.Now())

	sh := s.shardFor(roundID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	st, ok := sh.rounds[roundID]
	if !ok {
		return model.Round{}, notFound(roundID)
	}
	return st.round.Clone(), nil
}

// SetHeats implements Store.SetHeats.
func (s *MemStore) SetHeats(ctx context.Context, roundID string, heats []model.Heat) (model.Round, error) {
	var out model.Round
	err := s.update(roundID, func(st *roundState) error {
		st.round.Heats = make([]model.Heat, len(heats))
		for i, h := range heats {
			st.round.Heats[i] = h.Clone()
		}
		out = st.round.Clone()
		return nil
	})
	return out, err
}

// CompleteHeat implements Store.CompleteHeat.
func (s *MemStore) CompleteHeat(ctx context.Context, roundID string, number int, selected []string) (model.Heat, error) {
	var out model.Heat
	err := s.update(roundID, func(st *roundState) error {
		for i := range st.round.Heats {
			h := &st.round.Heats[i]
			if h.Number != number {
				continue
			}
			h.Completed = true
			h.Selected = append([]string{}, selected...)
			out = h.Clone()
			return nil
		}
		return fmt.Errorf("%w: %s/%d", ErrHeatNotFound, roundID, number)
	})
	return out, err
}

// CloseRound implements Store.CloseRound. Closing a closed round is a no-op.
func (s *MemStore) CloseRound(ctx context.Context, roundID string) (model.Round, error) {
	defer observeWrite(time.Now())

	sh := s.shardFor(roundID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.rounds[roundID]
	if !ok {
		return model.Round{}, notFound(roundID)
	}
	st.round.Closed = true
	return st.round.Clone(), nil
}

// PutRanking implements Store.PutRanking.
func (s *MemStore) PutRanking(ctx context.Context, roundID string, r model.JudgeRanking) (int64, error) {
	return s.put(roundID, func(st *roundState) { st.rankings.put(r.JudgeID, r.Clone()) })
}

// PutSelection implements Store.PutSelection.
func (s *MemStore) PutSelection(ctx context.Context, roundID string, sel model.JudgeSelection) (int64, error) {
	return s.put(roundID, func(st *roundState) { st.selections.put(sel.JudgeID, sel.Clone()) })
}

// PutScores implements Store.PutScores.
func (s *MemStore) PutScores(ctx context.Context, roundID string, set model.ScoreSet) (int64, error) {
	key := set.PerformanceID + "\x00" + set.JudgeID
	return s.put(roundID, func(st *roundState) { st.scores.put(key, set.Clone()) })
}

func (s *MemStore) put(roundID string, apply func(*roundState)) (int64, error) {
	var rev int64
	err := s.update(roundID, func(st *roundState) error {
		apply(st)
		st.revision++
		rev = st.revision
		return nil
	})
	return rev, err
}

// update runs fn under the shard write lock for an open round.
func (s *MemStore) update(roundID string, fn func(*roundState) error) error {
	defer observeWrite(time.Now())

	sh := s.shardFor(roundID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.rounds[roundID]
	if !ok {
		return notFound(roundID)
	}
	if st.round.Closed {
		return fmt.Errorf("%w: %s", ErrRoundClosed, roundID)
	}
	return fn(st)
}

// Snapshot implements Store.Snapshot.
func (s *MemStore) Snapshot(ctx context.Context, roundID string) (model.Snapshot, error) {
	defer observeRead(time.Now())

	sh := s.shardFor(roundID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	st, ok := sh.rounds[roundID]
	if !ok {
		return model.Snapshot{}, notFound(roundID)
	}

	snap := model.Snapshot{
		Round:      st.round.Clone(),
		Revision:   st.revision,
		Rankings:   make([]model.JudgeRanking, len(st.rankings.items)),
		Selections: make([]model.JudgeSelection, len(st.selections.items)),
		ScoreSets:  make([]model.ScoreSet, len(st.scores.items)),
	}
	for i, r := range st.rankings.items {
		snap.Rankings[i] = r.Clone()
	}
	for i, sel := range st.selections.items {
		snap.Selections[i] = sel.Clone()
	}
	for i, set := range st.scores.items {
		snap.ScoreSets[i] = set.Clone()
	}
	return snap, nil
}

// SaveResult implements Store.SaveResult.
func (s *MemStore) SaveResult(ctx context.Context, res types.Result) (bool, error) {
	defer observeWrite(time.Now())

	sh := s.shardFor(res.RoundID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	st, ok := sh.rounds[res.RoundID]
	if !ok {
		return false, notFound(res.RoundID)
	}
	if st.result != nil {
		if st.result.Final {
			return false, fmt.Errorf("%w: %s", ErrResultFrozen, res.RoundID)
		}
		if st.result.Revision > res.Revision {
			return false, nil
		}
	}
	stored := cloneResult(res)
	st.result = &stored
	return true, nil
}

// Result implements Store.Result.
func (s *MemStore) Result(ctx context.Context, roundID string) (types.Result, error) {
	defer observeRead(time.Now())

	sh := s.shardFor(roundID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	st, ok := sh.rounds[roundID]
	if !ok {
		return types.Result{}, notFound(roundID)
	}
	if st.result == nil {
		return types.Result{}, fmt.Errorf("%w: %s", ErrNoResult, roundID)
	}
	return cloneResult(*st.result), nil
}

// Count implements Store.Count.
func (s *MemStore) Count(ctx context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.rounds)
		sh.mu.RUnlock()
	}
	return total
}

// startMetricsUpdater starts a background goroutine that updates repository metrics.
func (s *MemStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemStore) updateMetrics() {
	total := 0
	for i, sh := range s.shards {
		sh.mu.RLock()
		n := len(sh.rounds)
		sh.mu.RUnlock()
		metrics.UpdateRepositoryRoundsPerShard(fmt.Sprintf("shard_%d", i), n)
		total += n
	}
	metrics.UpdateRepositoryRoundsTotal(total)
}

func notFound(roundID string) error {
	metrics.RecordErrorByComponent("repository", "not_found")
	return fmt.Errorf("%w: %s", ErrNotFound, roundID)
}

func observeWrite(start time.Time) {
	metrics.RecordRepositoryWriteLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func observeRead(start time.Time) {
	metrics.RecordRepositoryReadLatency(float64(time.Since(start).Microseconds()) / 1000)
}

func cloneResult(r types.Result) types.Result {
	out := r
	out.Standings = make([]types.Standing, len(r.Standings))
	for i, st := range r.Standings {
		st.Placements = append([]int(nil), st.Placements...)
		out.Standings[i] = st
	}
	if r.Advancing != nil {
		out.Advancing = append([]string{}, r.Advancing...)
	}
	return out
}
