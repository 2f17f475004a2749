package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dartmaster/dartmaster-api/models"
)

var ErrStatisticsNotFound = errors.New("player statistics not found")

type StatisticsRepository interface {
	GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.PlayerStatistics, error)
	Upsert(ctx context.Context, exec SQLExecutor, s *models.PlayerStatistics) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.PlayerStatistics, error)
}

type postgresStatisticsRepository struct {
	db *sql.DB
}

func NewPostgresStatisticsRepository(db *sql.DB) StatisticsRepository {
	return &postgresStatisticsRepository{db: db}
}

const statisticsColumns = `id, tournament_id, user_id, matches_played, matches_won, matches_lost, win_loss_ratio, average_score, ranking, updated_at`

func (r *postgresStatisticsRepository) GetByTournamentAndUser(ctx context.Context, exec SQLExecutor, tournamentID, userID int) (*models.PlayerStatistics, error) {
	if exec == nil {
		exec = r.db
	}
	query := `SELECT ` + statisticsColumns + ` FROM player_statistics WHERE tournament_id = $1 AND user_id = $2`

	s := &models.PlayerStatistics{}
	err := exec.QueryRowContext(ctx, query, tournamentID, userID).Scan(
		&s.ID,
		&s.TournamentID,
		&s.UserID,
		&s.MatchesPlayed,
		&s.MatchesWon,
		&s.MatchesLost,
		&s.WinLossRatio,
		&s.AverageScore,
		&s.Ranking,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStatisticsNotFound
		}
		return nil, fmt.Errorf("failed to scan statistics for tournament %d user %d: %w", tournamentID, userID, err)
	}
	return s, nil
}

func (r *postgresStatisticsRepository) Upsert(ctx context.Context, exec SQLExecutor, s *models.PlayerStatistics) error {
	if exec == nil {
		exec = r.db
	}
	query := `
		INSERT INTO player_statistics
			(tournament_id, user_id, matches_played, matches_won, matches_lost, win_loss_ratio, average_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id, user_id)
		DO UPDATE SET
			matches_played = EXCLUDED.matches_played,
			matches_won    = EXCLUDED.matches_won,
			matches_lost   = EXCLUDED.matches_lost,
			win_loss_ratio = EXCLUDED.win_loss_ratio,
			average_score  = EXCLUDED.average_score,
			updated_at     = now()
		RETURNING id, updated_at`

	err := exec.QueryRowContext(ctx, query,
		s.TournamentID,
		s.UserID,
		s.MatchesPlayed,
		s.MatchesWon,
		s.MatchesLost,
		s.WinLossRatio,
		s.AverageScore,
	).Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert player statistics: %w", err)
	}
	return nil
}

func (r *postgresStatisticsRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.PlayerStatistics, error) {
	query := `SELECT ` + statisticsColumns + ` FROM player_statistics WHERE tournament_id = $1 ORDER BY matches_won DESC, win_loss_ratio DESC`

	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query statistics for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	stats := make([]*models.PlayerStatistics, 0)
	for rows.Next() {
		var s models.PlayerStatistics
		if scanErr := rows.Scan(
			&s.ID,
			&s.TournamentID,
			&s.UserID,
			&s.MatchesPlayed,
			&s.MatchesWon,
			&s.MatchesLost,
			&s.WinLossRatio,
			&s.AverageScore,
			&s.Ranking,
			&s.UpdatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", scanErr)
		}
		stats = append(stats, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during statistics rows iteration: %w", err)
	}
	return stats, nil
}
