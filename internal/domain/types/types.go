// Package types contains common types used across the application
package types

import "time"

// Standing is one line of a round result.
type Standing struct {
	Position      int     `json:"position"`
	ParticipantID string  `json:"participant_id"`
	Score         float64 `json:"score"`
	Placements    []int   `json:"placements,omitempty"`
	Judges        int     `json:"judges,omitempty"`
	DecidedBy     string  `json:"decided_by,omitempty"`
	Threshold     int     `json:"threshold,omitempty"`
}

// Result is the aggregated outcome of a round at a given revision.
type Result struct {
	RoundID  string `json:"round_id"`
	Kind     string `json:"kind"`
	Revision int64  `json:"revision"`
	// Final is set once the round is closed and the result can no longer change.
	Final     bool       `json:"final"`
	Standings []Standing `json:"standings"`
	// Advancing lists who goes through from a selection round.
	Advancing  []string  `json:"advancing,omitempty"`
	ComputedAt time.Time `json:"computed_at"`
}

// Participants returns the participant ids in standing order.
func (r Result) Participants() []string {
	out := make([]string, len(r.Standings))
	for i, s := range r.Standings {
		out[i] = s.ParticipantID
	}
	return out
}
