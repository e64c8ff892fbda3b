// Package scoring turns a round snapshot into a result by dispatching to the
// aggregator that matches the round kind.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/ranking"
	"github.com/okian/skating/internal/domain/types"
)

// ErrUnknownKind is returned for a snapshot whose round kind has no aggregator.
var ErrUnknownKind = errors.New("unknown round kind")

// Scorer computes the result of a round from a snapshot of its submissions.
type Scorer interface {
	// Score computes a result, honoring ctx for cancellation.
	Score(ctx context.Context, snap model.Snapshot) (types.Result, error)
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithFinalistsCount sets how many participants advance from a selection
// round that does not name its own count.
func WithFinalistsCount(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.topN = n
		}
	}
}

// WithEngineOptions configures the skating engine used for finals.
func WithEngineOptions(opts ...ranking.EngineOption) Option {
	return func(d *Dispatcher) {
		d.engineOpts = append(d.engineOpts, opts...)
	}
}

// WithScoreRange sets the accepted range of a single parameter score.
func WithScoreRange(minScore, maxScore float64) Option {
	return func(d *Dispatcher) {
		if minScore <= maxScore {
			d.minScore = minScore
			d.maxScore = maxScore
		}
	}
}

// WithClock overrides the time source stamped on results.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// Dispatcher implements Scorer on top of the ranking package.
type Dispatcher struct {
	topN       int
	engineOpts []ranking.EngineOption
	engine     *ranking.Engine
	minScore   float64
	maxScore   float64
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher with configuration options.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		topN:     ranking.DefaultFinalistsCount,
		minScore: ranking.DefaultMinScore,
		maxScore: ranking.DefaultMaxScore,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.engine = ranking.NewEngine(d.engineOpts...)
	return d
}

// Score computes the result for snap.
func (d *Dispatcher) Score(ctx context.Context, snap model.Snapshot) (types.Result, error) {
	if err := ctx.Err(); err != nil {
		return types.Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	res := types.Result{
		RoundID:  snap.Round.ID,
		Kind:     string(snap.Round.Kind),
		Revision: snap.Revision,
		Final:    snap.Round.Closed,
	}

	var err error
	switch {
	case snap.Round.Kind.IsSelection():
		err = d.selection(snap, &res)
	case snap.Round.Kind == model.KindFinal:
		err = d.final(snap, &res)
	case snap.Round.Kind == model.KindParameters:
		err = d.parameters(snap, &res)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownKind, snap.Round.Kind)
	}
	if err != nil {
		return types.Result{}, err
	}
	res.ComputedAt = d.now()
	return res, nil
}

func (d *Dispatcher) selection(snap model.Snapshot, res *types.Result) error {
	topN := snap.Round.TopN
	if topN <= 0 {
		topN = d.topN
	}
	tallies, err := ranking.TallySelections(snap.Selections)
	if err != nil {
		return fmt.Errorf("tally selections: %w", err)
	}
	res.Standings = make([]types.Standing, len(tallies))
	for i, t := range tallies {
		res.Standings[i] = types.Standing{
			Position:      i + 1,
			ParticipantID: t.ParticipantID,
			Score:         float64(t.Count),
		}
	}
	advancing := min(topN, len(tallies))
	res.Advancing = make([]string, advancing)
	for i, t := range tallies[:advancing] {
		res.Advancing[i] = t.ParticipantID
	}
	return nil
}

func (d *Dispatcher) final(snap model.Snapshot, res *types.Result) error {
	standings, err := d.engine.Rank(snap.Rankings, snap.Round.Participants)
	if err != nil {
		return fmt.Errorf("rank finalists: %w", err)
	}
	res.Standings = make([]types.Standing, len(standings))
	for i, s := range standings {
		res.Standings[i] = types.Standing{
			Position:      s.Position,
			ParticipantID: s.ParticipantID,
			Score:         float64(s.TotalScore),
			Placements:    s.Placements,
			Judges:        len(s.Placements),
			DecidedBy:     string(s.DecidedBy),
			Threshold:     s.Threshold,
		}
	}
	return nil
}

func (d *Dispatcher) parameters(snap model.Snapshot, res *types.Result) error {
	standings, err := ranking.AggregateParameters(snap.ScoreSets, snap.Round.ParameterIDs,
		ranking.WithScoreRange(d.minScore, d.maxScore))
	if err != nil {
		return fmt.Errorf("aggregate parameters: %w", err)
	}
	res.Standings = make([]types.Standing, len(standings))
	for i, s := range standings {
		res.Standings[i] = types.Standing{
			Position:      s.Rank,
			ParticipantID: s.PerformanceID,
			Score:         s.TotalScore,
			Judges:        s.Judges,
		}
	}
	return nil
}
