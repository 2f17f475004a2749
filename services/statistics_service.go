package services

import (
	"context"
	"errors"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/repositories"
)

type StatisticsService interface {
	GetForPlayer(ctx context.Context, tournamentID, userID int) (*models.PlayerStatistics, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.PlayerStatistics, error)
}

type statisticsService struct {
	tournamentRepo repositories.TournamentRepository
	statsRepo      repositories.StatisticsRepository
}

func NewStatisticsService(
	tournamentRepo repositories.TournamentRepository,
	statsRepo repositories.StatisticsRepository,
) StatisticsService {
	return &statisticsService{
		tournamentRepo: tournamentRepo,
		statsRepo:      statsRepo,
	}
}

// GetForPlayer returns the player's aggregates for a tournament. A player
// with no completed matches yet gets a zeroed record rather than an error.
func (s *statisticsService) GetForPlayer(ctx context.Context, tournamentID, userID int) (*models.PlayerStatistics, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	stats, err := s.statsRepo.GetByTournamentAndUser(ctx, nil, tournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrStatisticsNotFound) {
			return &models.PlayerStatistics{TournamentID: tournamentID, UserID: userID}, nil
		}
		return nil, err
	}
	return stats, nil
}

func (s *statisticsService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.PlayerStatistics, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.statsRepo.ListByTournament(ctx, tournamentID)
}
