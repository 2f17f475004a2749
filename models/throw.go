package models

import "time"

// DartThrow is one recorded visit to the oche: the points for up to three
// darts, the score that remained afterwards, and where the visit falls in the
// round/throw grid. Rows are immutable; undo deletes the latest one.
type DartThrow struct {
	ID             int       `json:"id"`
	MatchID        int       `json:"match_id"`
	UserID         int       `json:"user_id"`
	Points         int       `json:"points"`
	RemainingScore int       `json:"remaining_score"`
	IsDouble       bool      `json:"is_double"`
	RoundNumber    int       `json:"round_number"`
	ThrowNumber    int       `json:"throw_number"`
	ThrownAt       time.Time `json:"thrown_at"`
}
