package simulate

import (
	"fmt"
	"slices"
)

// Verify checks a closed final: it is crystallized, every finalist appears
// exactly once, and positions start at 1 and never skip past the row number.
func Verify(res result, finalists []string) error {
	if !res.Final {
		return fmt.Errorf("%w: round %s is not final", ErrVerification, res.RoundID)
	}
	if len(res.Standings) != len(finalists) {
		return fmt.Errorf("%w: %d standings for %d finalists", ErrVerification, len(res.Standings), len(finalists))
	}

	seen := make(map[string]struct{}, len(finalists))
	prev := 0
	for i, st := range res.Standings {
		if !slices.Contains(finalists, st.ParticipantID) {
			return fmt.Errorf("%w: %q is not a finalist", ErrVerification, st.ParticipantID)
		}
		if _, dup := seen[st.ParticipantID]; dup {
			return fmt.Errorf("%w: %q ranked twice", ErrVerification, st.ParticipantID)
		}
		seen[st.ParticipantID] = struct{}{}

		if st.Position < 1 || st.Position > i+1 || st.Position < prev {
			return fmt.Errorf("%w: position %d at row %d", ErrVerification, st.Position, i+1)
		}
		prev = st.Position
	}
	return nil
}
