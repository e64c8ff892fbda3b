// Package repository holds rounds, judge submissions and computed results.
package repository

import (
	"context"

	"github.com/okian/skating/internal/domain/model"
	"github.com/okian/skating/internal/domain/types"
)

// Store provides read/write access to rounds and their submissions.
//
// Every accepted submission bumps the round revision. Submissions follow
// last-write-wins per judge (per judge and performance for scores).
type Store interface {
	// CreateRound stores a new round. Returns ErrRoundExists for a taken id.
	CreateRound(ctx context.Context, round model.Round) error
	// Round returns a copy of the round. Returns ErrNotFound if unknown.
	Round(ctx context.Context, roundID string) (model.Round, error)
	// SetHeats replaces the heats of an open round. Heats do not affect
	// results, so the revision is left alone.
	SetHeats(ctx context.Context, roundID string, heats []model.Heat) (model.Round, error)
	// CompleteHeat marks a heat as judged and records who was selected from it.
	CompleteHeat(ctx context.Context, roundID string, number int, selected []string) (model.Heat, error)
	// CloseRound freezes the round against further writes.
	CloseRound(ctx context.Context, roundID string) (model.Round, error)

	PutRanking(ctx context.Context, roundID string, r model.JudgeRanking) (int64, error)
	PutSelection(ctx context.Context, roundID string, s model.JudgeSelection) (int64, error)
	PutScores(ctx context.Context, roundID string, s model.ScoreSet) (int64, error)

	// Snapshot returns a detached, consistent copy of a round and its submissions.
	Snapshot(ctx context.Context, roundID string) (model.Snapshot, error)

	// SaveResult stores res unless a newer revision is already stored. Reports
	// whether it was stored. A final result is never overwritten.
	SaveResult(ctx context.Context, res types.Result) (bool, error)
	// Result returns the stored result. Returns ErrNotFound if none exists.
	Result(ctx context.Context, roundID string) (types.Result, error)

	// Count returns the number of rounds.
	Count(ctx context.Context) int
}
