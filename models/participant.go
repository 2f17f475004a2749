package models

import "time"

type ParticipantStatus string

const (
	ParticipantStatusRegistered ParticipantStatus = "registered"
	ParticipantStatusActive     ParticipantStatus = "active"
	ParticipantStatusWithdrawn  ParticipantStatus = "withdrawn"
)

// TournamentParticipant is a user's registration in a tournament.
type TournamentParticipant struct {
	ID           int               `json:"id"`
	TournamentID int               `json:"tournament_id"`
	UserID       int               `json:"user_id"`
	GroupID      *int              `json:"group_id,omitempty"`
	Status       ParticipantStatus `json:"status"`
	RegisteredAt time.Time         `json:"registered_at"`

	User *User `json:"user,omitempty"`
}
