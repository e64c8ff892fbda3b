package ranking

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/okian/skating/internal/domain/model"
)

// Shuffler permutes n elements through swap. (*rand.Rand).Shuffle satisfies
// it, so a seeded source makes a draw reproducible.
type Shuffler func(n int, swap func(i, j int))

// AllocateHeats draws participants into heats of heatSize. The pool is
// shuffled first and then cut into consecutive chunks; the last heat may be
// smaller. A nil shuffle uses the process-wide random source.
func AllocateHeats(participants []string, heatSize int, shuffle Shuffler) ([]model.Heat, error) {
	if heatSize < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHeatSize, heatSize)
	}
	if len(participants) == 0 {
		return []model.Heat{}, nil
	}
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	pool := slices.Clone(participants)
	shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	heats := make([]model.Heat, 0, (len(pool)+heatSize-1)/heatSize)
	for start := 0; start < len(pool); start += heatSize {
		end := min(start+heatSize, len(pool))
		heats = append(heats, model.Heat{
			Number:       len(heats) + 1,
			Participants: slices.Clone(pool[start:end]),
			Selected:     []string{},
		})
	}
	return heats, nil
}
