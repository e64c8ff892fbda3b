package ranking

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/okian/skating/internal/domain/model"
)

// Tally is the number of judges that picked a participant to advance.
type Tally struct {
	ParticipantID string
	Count         int
}

// TallySelections counts, per participant, how many judges selected it.
// A judge naming the same participant twice counts once, and a later
// selection from the same judge replaces the earlier one.
//
// The result is ordered by count descending, then by participant id
// ascending so equal counts never depend on map or input order.
func TallySelections(selections []model.JudgeSelection) ([]Tally, error) {
	counts := make(map[string]int)
	for _, sel := range latestByJudge(selections, selectionJudge) {
		seen := make(map[string]struct{}, len(sel.Selected))
		for _, id := range sel.Selected {
			if id == "" {
				return nil, fmt.Errorf("%w: empty participant id from judge %q", ErrInvalidSelection, sel.JudgeID)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			counts[id]++
		}
	}

	tallies := make([]Tally, 0, len(counts))
	for id, n := range counts {
		tallies = append(tallies, Tally{ParticipantID: id, Count: n})
	}
	slices.SortFunc(tallies, func(a, b Tally) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})
	return tallies, nil
}

// TopSelections returns at most topN tallies. Participants nobody picked are
// never returned, so the result may be shorter than topN.
func TopSelections(selections []model.JudgeSelection, topN int) ([]Tally, error) {
	if topN < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTopN, topN)
	}
	tallies, err := TallySelections(selections)
	if err != nil {
		return nil, err
	}
	if len(tallies) > topN {
		tallies = tallies[:topN]
	}
	return tallies, nil
}

// AggregateSelections returns the ids of the participants that advance.
func AggregateSelections(selections []model.JudgeSelection, topN int) ([]string, error) {
	top, err := TopSelections(selections, topN)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(top))
	for i, t := range top {
		ids[i] = t.ParticipantID
	}
	return ids, nil
}
