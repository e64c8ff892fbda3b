package ranking

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/okian/skating/internal/domain/model"
)

// Rule names the skating rule that separated a finalist from the one placed
// directly below it.
type Rule string

// Skating rules in the order they are applied.
const (
	RuleNone        Rule = ""
	RuleSum         Rule = "rule9"  // lower sum of placements
	RuleMajority    Rule = "rule10" // earlier or larger majority of placements
	RuleMajoritySum Rule = "rule11" // lower sum of the placements forming the majority
	RuleTie         Rule = "tie"    // nothing separates them
)

// Standing is one finalist's line in the final classification.
type Standing struct {
	ParticipantID string
	Position      int
	TotalScore    int
	// Placements are the positions judges gave this finalist, ascending.
	Placements []int
	// DecidedBy and Threshold trace how this finalist was separated from the
	// next one. Threshold is the placement level rules 10 and 11 stopped at.
	DecidedBy Rule
	Threshold int
}

// Engine ranks finalists with the skating system. The zero value is not
// usable; build one with NewEngine.
type Engine struct {
	maxPlacement     int
	sharedPlacements bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxPlacement sets the highest placement a judge may give. The engine
// always accepts placements up to the number of finalists.
func WithMaxPlacement(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxPlacement = n
		}
	}
}

// WithSharedPlacements lets one judge give the same placement to several
// finalists.
func WithSharedPlacements() EngineOption {
	return func(e *Engine) {
		e.sharedPlacements = true
	}
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{maxPlacement: DefaultMaxPlacement}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank ranks finalists with a default Engine.
func Rank(rankings []model.JudgeRanking, finalists []string) ([]Standing, error) {
	return NewEngine().Rank(rankings, finalists)
}

// Rank converts the judges' rankings into one classification of finalists.
//
// Finalists are sorted by rule 9, then rules 10 and 11 scanning placement
// levels 1..len(finalists). Finalists nothing can separate keep their input
// order. Positions are always 1..len(finalists) without gaps. A later
// ranking from the same judge replaces the earlier one.
func (e *Engine) Rank(rankings []model.JudgeRanking, finalists []string) ([]Standing, error) {
	if len(finalists) == 0 {
		return []Standing{}, nil
	}
	seen := make(map[string]struct{}, len(finalists))
	for _, id := range finalists {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateParticipant, id)
		}
		seen[id] = struct{}{}
	}

	rankings = latestByJudge(rankings, rankingJudge)
	if err := e.validate(rankings, finalists); err != nil {
		return nil, err
	}

	standings := make([]Standing, len(finalists))
	for i, id := range finalists {
		placements := make([]int, 0, len(rankings))
		total := 0
		for _, r := range rankings {
			if p, ok := r.Placements[id]; ok {
				placements = append(placements, p)
				total += p
			}
		}
		slices.Sort(placements)
		standings[i] = Standing{ParticipantID: id, TotalScore: total, Placements: placements}
	}

	// Rule 9 is applied on its own first so that a real sum difference can
	// never be overturned by a majority chain; rules 10 and 11 only order
	// finalists inside a group of equal sums.
	slices.SortStableFunc(standings, func(a, b Standing) int {
		return cmp.Compare(a.TotalScore, b.TotalScore)
	})
	c := comparator{majority: len(rankings)/2 + 1, levels: len(finalists)}
	for start := 0; start < len(standings); {
		end := start + 1
		for end < len(standings) && standings[end].TotalScore == standings[start].TotalScore {
			end++
		}
		slices.SortStableFunc(standings[start:end], func(a, b Standing) int {
			order, _, _ := c.compare(a, b)
			return order
		})
		start = end
	}

	for i := range standings {
		standings[i].Position = i + 1
		if i+1 < len(standings) {
			_, rule, threshold := c.compare(standings[i], standings[i+1])
			standings[i].DecidedBy = rule
			standings[i].Threshold = threshold
		}
	}
	return standings, nil
}

// validate rejects placements the comparator cannot order meaningfully.
// Placements for participants that are not finalists are ignored.
func (e *Engine) validate(rankings []model.JudgeRanking, finalists []string) error {
	limit := max(e.maxPlacement, len(finalists))
	for _, r := range rankings {
		used := make(map[int]string, len(finalists))
		for _, id := range finalists {
			p, ok := r.Placements[id]
			if !ok {
				continue
			}
			if p < 1 || p > limit {
				return &PlacementError{JudgeID: r.JudgeID, ParticipantID: id, Placement: p, Err: ErrInvalidPlacement}
			}
			if e.sharedPlacements {
				continue
			}
			if _, dup := used[p]; dup {
				return &PlacementError{JudgeID: r.JudgeID, ParticipantID: id, Placement: p, Err: ErrDuplicatePlacement}
			}
			used[p] = id
		}
	}
	return nil
}

type comparator struct {
	majority int
	levels   int
}

// compare orders a before b when it returns a negative value. It also
// reports the rule and placement level that decided.
func (c comparator) compare(a, b Standing) (int, Rule, int) {
	if a.TotalScore != b.TotalScore {
		return cmp.Compare(a.TotalScore, b.TotalScore), RuleSum, 0
	}
	for level := 1; level <= c.levels; level++ {
		countA, sumA := upTo(a.Placements, level)
		countB, sumB := upTo(b.Placements, level)
		majA, majB := countA >= c.majority, countB >= c.majority
		switch {
		case majA && !majB:
			return -1, RuleMajority, level
		case majB && !majA:
			return 1, RuleMajority, level
		case majA && majB:
			if countA != countB {
				return cmp.Compare(countB, countA), RuleMajority, level
			}
			if sumA != sumB {
				return cmp.Compare(sumA, sumB), RuleMajoritySum, level
			}
		}
	}
	return 0, RuleTie, 0
}

// upTo counts and sums the placements at or better than level. placements
// must be sorted ascending.
func upTo(placements []int, level int) (count, sum int) {
	for _, p := range placements {
		if p > level {
			break
		}
		count++
		sum += p
	}
	return count, sum
}
