package simulate

import (
	"cmp"
	"hash/fnv"
	"math/rand"
	"slices"
)

// noise is the spread of a judge's perception around a couple's skill.
const noise = 1.5

// judge scores couples by perceived skill. Each judge owns its random source
// so concurrent judges never share one.
type judge struct {
	id     string
	skills map[string]float64
	rng    *rand.Rand
}

func newJudge(id string, skills map[string]float64, seed int64) *judge {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return &judge{
		id:     id,
		skills: skills,
		rng:    rand.New(rand.NewSource(seed ^ int64(h.Sum64()))), //nolint:gosec // simulation noise
	}
}

// order returns couples from best to worst as this judge sees them.
func (j *judge) order(couples []string) []string {
	type seen struct {
		id    string
		score float64
	}
	marks := make([]seen, len(couples))
	for i, id := range couples {
		marks[i] = seen{id: id, score: j.skills[id] + j.rng.NormFloat64()*noise}
	}
	slices.SortStableFunc(marks, func(a, b seen) int { return cmp.Compare(b.score, a.score) })

	out := make([]string, len(marks))
	for i, m := range marks {
		out[i] = m.id
	}
	return out
}

// pick selects the n couples this judge wants to advance.
func (j *judge) pick(couples []string, n int) []string {
	ordered := j.order(couples)
	return ordered[:min(n, len(ordered))]
}

// place gives finalists placements 1..len(finalists).
func (j *judge) place(finalists []string) map[string]int {
	placements := make(map[string]int, len(finalists))
	for i, id := range j.order(finalists) {
		placements[id] = i + 1
	}
	return placements
}
