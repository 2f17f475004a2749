package models

import "time"

// PlayerStatistics aggregates a player's results within one tournament.
// Ranking is stored for the frontend but nothing computes it yet.
type PlayerStatistics struct {
	ID            int       `json:"id"`
	TournamentID  int       `json:"tournament_id"`
	UserID        int       `json:"user_id"`
	MatchesPlayed int       `json:"matches_played"`
	MatchesWon    int       `json:"matches_won"`
	MatchesLost   int       `json:"matches_lost"`
	WinLossRatio  float64   `json:"win_loss_ratio"`
	AverageScore  float64   `json:"average_score"`
	Ranking       *int      `json:"ranking,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}
