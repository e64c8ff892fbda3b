package ranking

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/okian/skating/internal/domain/model"
)

// ParameterStanding is one performance's place in a parameter round.
type ParameterStanding struct {
	PerformanceID string
	Rank          int
	TotalScore    float64
	// Judges is the number of judges that contributed at least one score.
	Judges int
}

type parameterConfig struct {
	minScore float64
	maxScore float64
}

// ParameterOption configures AggregateParameters.
type ParameterOption func(*parameterConfig)

// WithScoreRange sets the inclusive range a single parameter score must fall in.
func WithScoreRange(minScore, maxScore float64) ParameterOption {
	return func(c *parameterConfig) {
		if minScore <= maxScore {
			c.minScore = minScore
			c.maxScore = maxScore
		}
	}
}

// AggregateParameters sums every judge's scores for the given parameters per
// performance and ranks performances by that total, highest first. An empty
// parameterIDs counts every submitted parameter.
//
// Performances whose score sets contribute nothing for the listed parameters
// are left out. Equal totals keep the order in which the performances first
// appear in sets.
//
// Scores are summed as whole hundredths so the total does not depend on the
// order the parameters are visited in.
func AggregateParameters(sets []model.ScoreSet, parameterIDs []string, opts ...ParameterOption) ([]ParameterStanding, error) {
	cfg := parameterConfig{minScore: DefaultMinScore, maxScore: DefaultMaxScore}
	for _, opt := range opts {
		opt(&cfg)
	}

	var wanted map[string]struct{}
	if len(parameterIDs) > 0 {
		wanted = make(map[string]struct{}, len(parameterIDs))
		for _, id := range parameterIDs {
			wanted[id] = struct{}{}
		}
	}

	type acc struct {
		first  int
		total  int64
		judges map[string]struct{}
		scored int
	}
	byPerf := make(map[string]*acc)
	for i, set := range latestByJudge(sets, scoreSetKey) {
		if set.PerformanceID == "" {
			return nil, fmt.Errorf("%w: empty performance id from judge %q", ErrInvalidScoreSet, set.JudgeID)
		}
		a, ok := byPerf[set.PerformanceID]
		if !ok {
			a = &acc{first: i, judges: make(map[string]struct{})}
			byPerf[set.PerformanceID] = a
		}
		contributed := false
		for _, param := range scoredParameters(set.Scores, wanted) {
			score := set.Scores[param]
			if math.IsNaN(score) || math.IsInf(score, 0) || score < cfg.minScore || score > cfg.maxScore {
				return nil, fmt.Errorf("%w: judge=%q performance=%q parameter=%q score=%v",
					ErrInvalidScore, set.JudgeID, set.PerformanceID, param, score)
			}
			a.total += toPoints(score)
			a.scored++
			contributed = true
		}
		if contributed {
			a.judges[set.JudgeID] = struct{}{}
		}
	}

	type row struct {
		ParameterStanding
		first  int
		points int64
	}
	rows := make([]row, 0, len(byPerf))
	for id, a := range byPerf {
		if a.scored == 0 {
			continue
		}
		rows = append(rows, row{
			ParameterStanding: ParameterStanding{PerformanceID: id, TotalScore: fromPoints(a.total), Judges: len(a.judges)},
			first:             a.first,
			points:            a.total,
		})
	}
	slices.SortFunc(rows, func(a, b row) int {
		if c := cmp.Compare(b.points, a.points); c != 0 {
			return c
		}
		return cmp.Compare(a.first, b.first)
	})

	out := make([]ParameterStanding, len(rows))
	for i, r := range rows {
		out[i] = r.ParameterStanding
		out[i].Rank = i + 1
	}
	return out, nil
}

// pointsPerUnit is the fixed-point scale of summed scores (hundredths).
const pointsPerUnit = 100

func toPoints(score float64) int64 { return int64(math.Round(score * pointsPerUnit)) }

func fromPoints(p int64) float64 { return float64(p) / pointsPerUnit }

// scoredParameters returns the parameters of scores that count, sorted.
func scoredParameters(scores map[string]float64, wanted map[string]struct{}) []string {
	out := make([]string, 0, len(scores))
	for param := range scores {
		if wanted != nil {
			if _, ok := wanted[param]; !ok {
				continue
			}
		}
		out = append(out, param)
	}
	slices.Sort(out)
	return out
}
