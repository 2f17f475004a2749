package models

import "time"

// TournamentStatus mirrors the tournament_status ENUM in the database.
type TournamentStatus string

const (
	TournamentStatusPlanning  TournamentStatus = "planning"
	TournamentStatusActive    TournamentStatus = "active"
	TournamentStatusCompleted TournamentStatus = "completed"
)

// TournamentFormat is stored for the frontend but no bracket logic consumes it.
type TournamentFormat string

const (
	FormatGroup    TournamentFormat = "group"
	FormatSeries   TournamentFormat = "series"
	FormatKnockout TournamentFormat = "knockout"
)

type Tournament struct {
	ID                   int              `json:"id"`
	Name                 string           `json:"name"`
	Description          *string          `json:"description,omitempty"`
	Status               TournamentStatus `json:"status"`
	Format               TournamentFormat `json:"format"`
	MatchFormat          MatchFormat      `json:"match_format"`
	StartDate            time.Time        `json:"start_date"`
	EndDate              *time.Time       `json:"end_date,omitempty"`
	RegistrationDeadline *time.Time       `json:"registration_deadline,omitempty"`
	MaxPlayers           int              `json:"max_players"`
	AdminID              int              `json:"admin_id"`
	LogoKey              *string          `json:"-"`
	LogoURL              *string          `json:"logo_url,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type TournamentGroup struct {
	ID           int       `json:"id"`
	TournamentID int       `json:"tournament_id"`
	Name         string    `json:"name"`
	GroupNumber  int       `json:"group_number"`
	CreatedAt    time.Time `json:"created_at"`
}
