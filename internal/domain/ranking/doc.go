// Package ranking implements the aggregation engine of a dance competition:
// heat allocation, judge selection tallies, parameter score totals and the
// skating system (rules 9, 10 and 11) used to order the finalists.
//
// Every function here is pure. Callers hand in a snapshot of the current
// submissions and get a freshly computed ordering back.
package ranking

import "github.com/okian/skating/internal/domain/model"

// Competition defaults inherited from the federation rules in use.
const (
	DefaultHeatSize       = 6
	DefaultFinalistsCount = 6
	DefaultMaxPlacement   = 6
	DefaultMinScore       = 1.0
	DefaultMaxScore       = 10.0
)

// latestByJudge keeps the last submission per judge. Entries without a
// judge id are anonymous and always kept.
func latestByJudge[T any](items []T, key func(T) string) []T {
	out := make([]T, 0, len(items))
	at := make(map[string]int, len(items))
	for _, it := range items {
		k := key(it)
		if k == "" {
			out = append(out, it)
			continue
		}
		if i, ok := at[k]; ok {
			out[i] = it
			continue
		}
		at[k] = len(out)
		out = append(out, it)
	}
	return out
}

func rankingJudge(r model.JudgeRanking) string     { return r.JudgeID }
func selectionJudge(s model.JudgeSelection) string { return s.JudgeID }
func scoreSetKey(s model.ScoreSet) string {
	if s.JudgeID == "" {
		return ""
	}
	return s.PerformanceID + "\x00" + s.JudgeID
}
