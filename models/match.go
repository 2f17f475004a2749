package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled           MatchStatus = "scheduled"
	MatchStatusLive                MatchStatus = "live"
	MatchStatusWaitingConfirmation MatchStatus = "waiting_confirmation"
	MatchStatusCompleted           MatchStatus = "completed"
)

// MatchFormat is the X01 variant a match is played to.
type MatchFormat string

const (
	MatchFormat301 MatchFormat = "301"
	MatchFormat501 MatchFormat = "501"
)

// StartingScore returns the score each player counts down from.
// Anything that is not an explicit 301 is played as 501.
func (f MatchFormat) StartingScore() int {
	if f == MatchFormat301 {
		return 301
	}
	return 501
}

type Match struct {
	ID             int         `json:"id"`
	TournamentID   int         `json:"tournament_id"`
	GroupID        *int        `json:"group_id,omitempty"`
	MatchFormat    MatchFormat `json:"match_format"`
	Status         MatchStatus `json:"status"`
	ScheduledStart *time.Time  `json:"scheduled_start,omitempty"`
	ActualStart    *time.Time  `json:"actual_start,omitempty"`
	ActualEnd      *time.Time  `json:"actual_end,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	Participants []*MatchParticipant `json:"participants,omitempty"`
}

// MatchParticipant is a player's membership in a match. FinishingScore and
// Position stay NULL until the player checks out (0 and 1 for the winner).
type MatchParticipant struct {
	ID             int       `json:"id"`
	MatchID        int       `json:"match_id"`
	UserID         int       `json:"user_id"`
	FinishingScore *int      `json:"finishing_score,omitempty"`
	Position       *int      `json:"position,omitempty"`
	IsConfirmed    bool      `json:"is_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
}
