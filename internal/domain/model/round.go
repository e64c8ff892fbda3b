// Package model contains domain models passed between layers.
package model

import "time"

// RoundKind selects which aggregator scores a round.
type RoundKind string

// Supported round kinds.
const (
	KindHeats      RoundKind = "heats"      // elimination heats, judges pick who advances
	KindSemifinal  RoundKind = "semifinal"  // same selection semantics as heats
	KindFinal      RoundKind = "final"      // judges rank finalists, skating system
	KindParameters RoundKind = "parameters" // judges score each performance per parameter
)

// Valid reports whether k is a known round kind.
func (k RoundKind) Valid() bool {
	switch k {
	case KindHeats, KindSemifinal, KindFinal, KindParameters:
		return true
	}
	return false
}

// IsSelection reports whether the round is decided by advance/does-not-advance picks.
func (k RoundKind) IsSelection() bool {
	return k == KindHeats || k == KindSemifinal
}

// Round describes one scoring round of a competition.
type Round struct {
	ID            string
	CompetitionID string
	Kind          RoundKind
	// Participants holds the pool for selection rounds, the finalists for
	// a final, or the performances for a parameter round.
	Participants []string
	// TopN is how many participants advance from a selection round.
	TopN         int
	ParameterIDs []string
	Heats        []Heat
	Closed       bool
	CreatedAt    time.Time
}

// Heat is a group of participants dancing together in an elimination round.
type Heat struct {
	ID           string
	Number       int
	Participants []string
	Completed    bool
	Selected     []string
}

// Clone returns a deep copy of r.
func (r Round) Clone() Round {
	out := r
	out.Participants = append([]string(nil), r.Participants...)
	out.ParameterIDs = append([]string(nil), r.ParameterIDs...)
	if r.Heats != nil {
		out.Heats = make([]Heat, len(r.Heats))
		for i, h := range r.Heats {
			out.Heats[i] = h.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of h.
func (h Heat) Clone() Heat {
	out := h
	out.Participants = append([]string(nil), h.Participants...)
	out.Selected = append([]string{}, h.Selected...)
	return out
}
