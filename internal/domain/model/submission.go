package model

import "time"

// JudgeRanking is one judge's ordering of the finalists of a round.
// Placements maps participant id to a 1-based position.
type JudgeRanking struct {
	JudgeID    string
	Placements map[string]int
	TS         time.Time
}

// JudgeSelection is one judge's set of participants chosen to advance.
type JudgeSelection struct {
	JudgeID  string
	Selected []string
	TS       time.Time
}

// ScoreSet is one judge's per-parameter scores for one performance.
type ScoreSet struct {
	PerformanceID string
	JudgeID       string
	Scores        map[string]float64
	TS            time.Time
}

// Snapshot is a consistent, detached copy of a round and every current
// submission for it. Revision increases with every accepted write.
type Snapshot struct {
	Round      Round
	Revision   int64
	Rankings   []JudgeRanking
	Selections []JudgeSelection
	ScoreSets  []ScoreSet
}

// RoundChanged signals that the submissions of a round changed and its
// result should be recomputed.
type RoundChanged struct {
	RoundID  string
	Revision int64
	TS       time.Time
}

// Clone returns a deep copy of r.
func (r JudgeRanking) Clone() JudgeRanking {
	out := r
	out.Placements = make(map[string]int, len(r.Placements))
	for k, v := range r.Placements {
		out.Placements[k] = v
	}
	return out
}

// Clone returns a deep copy of s.
func (s JudgeSelection) Clone() JudgeSelection {
	out := s
	out.Selected = append([]string(nil), s.Selected...)
	return out
}

// Clone returns a deep copy of s.
func (s ScoreSet) Clone() ScoreSet {
	out := s
	out.Scores = make(map[string]float64, len(s.Scores))
	for k, v := range s.Scores {
		out.Scores[k] = v
	}
	return out
}
