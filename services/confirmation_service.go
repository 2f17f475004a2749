package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/repositories"
)

// ConfirmationStatus reports how far along the result sign-off is.
type ConfirmationStatus struct {
	MatchID        int  `json:"match_id"`
	Confirmed      int  `json:"confirmed"`
	Required       int  `json:"required"`
	MatchCompleted bool `json:"match_completed"`
}

type ConfirmationService interface {
	Confirm(ctx context.Context, matchID, userID int) (*ConfirmationStatus, error)
	ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error)
}

type confirmationService struct {
	tx              txRunner
	matchRepo       repositories.MatchRepository
	participantRepo repositories.MatchParticipantRepository
	throwRepo       repositories.ThrowRepository
	confirmRepo     repositories.ConfirmationRepository
	statsRepo       repositories.StatisticsRepository
	logger          *slog.Logger
}

func NewConfirmationService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.MatchParticipantRepository,
	throwRepo repositories.ThrowRepository,
	confirmRepo repositories.ConfirmationRepository,
	statsRepo repositories.StatisticsRepository,
	logger *slog.Logger,
) ConfirmationService {
	return &confirmationService{
		tx:              newSQLTxRunner(db),
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		throwRepo:       throwRepo,
		confirmRepo:     confirmRepo,
		statsRepo:       statsRepo,
		logger:          logger,
	}
}

// Confirm records the caller's sign-off on a finished match. Once every
// participant has confirmed, the match is completed, the loser's result is
// finalized and tournament statistics are updated for both players.
func (s *confirmationService) Confirm(ctx context.Context, matchID, userID int) (*ConfirmationStatus, error) {
	var status ConfirmationStatus

	err := s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to load match %d: %w", matchID, err)
		}
		if match.Status != models.MatchStatusWaitingConfirmation {
			return ErrNothingToConfirm
		}

		participant, err := s.participantRepo.LockByMatchAndUser(ctx, exec, matchID, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchParticipantNotFound) {
				return ErrNotMatchParticipant
			}
			return fmt.Errorf("failed to lock participant for match %d user %d: %w", matchID, userID, err)
		}

		now := time.Now().UTC()
		confirmation := &models.MatchConfirmation{
			MatchID:     matchID,
			UserID:      userID,
			Confirmed:   true,
			ConfirmedAt: &now,
		}
		if err := s.confirmRepo.Upsert(ctx, exec, confirmation); err != nil {
			return err
		}
		if !participant.IsConfirmed {
			if err := s.participantRepo.SetConfirmed(ctx, exec, participant.ID, true); err != nil {
				return err
			}
		}

		confirmed, err := s.confirmRepo.CountConfirmedByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}
		participants, err := s.participantRepo.ListByMatch(ctx, exec, matchID)
		if err != nil {
			return err
		}

		status = ConfirmationStatus{
			MatchID:   matchID,
			Confirmed: confirmed,
			Required:  len(participants),
		}
		if confirmed < len(participants) {
			return nil
		}

		if err := s.completeMatch(ctx, exec, match, participants, now); err != nil {
			return err
		}
		status.MatchCompleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if status.MatchCompleted {
		s.logger.Info("match completed", slog.Int("match_id", matchID))
	}
	return &status, nil
}

func (s *confirmationService) ListByMatch(ctx context.Context, matchID int) ([]*models.MatchConfirmation, error) {
	if _, err := s.matchRepo.GetByID(ctx, nil, matchID); err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return s.confirmRepo.ListByMatch(ctx, matchID)
}

// completeMatch finalizes results after the last confirmation. The winner
// already carries finishing score 0 and position 1 from the checkout; losers
// get their remaining score and position 2 here.
func (s *confirmationService) completeMatch(
	ctx context.Context,
	exec repositories.SQLExecutor,
	match *models.Match,
	participants []*models.MatchParticipant,
	now time.Time,
) error {
	startingScore := match.MatchFormat.StartingScore()

	for _, p := range participants {
		if p.Position != nil {
			continue
		}
		remaining := startingScore
		latest, err := s.throwRepo.LatestByMatchAndPlayer(ctx, exec, match.ID, p.UserID)
		if err != nil && !errors.Is(err, repositories.ErrThrowNotFound) {
			return err
		}
		if err == nil {
			remaining = latest.RemainingScore
		}
		second := 2
		if err := s.participantRepo.UpdateResult(ctx, exec, p.ID, &remaining, &second); err != nil {
			return err
		}
		p.FinishingScore = &remaining
		p.Position = &second
	}

	if err := s.matchRepo.UpdateStatus(ctx, exec, match.ID, models.MatchStatusCompleted); err != nil {
		return err
	}
	if err := s.matchRepo.SetActualEnd(ctx, exec, match.ID, now); err != nil {
		return err
	}

	return s.updateStatistics(ctx, exec, match, participants)
}

// updateStatistics folds the finished match into each player's tournament
// aggregates. The per-match average is points per dart.
func (s *confirmationService) updateStatistics(
	ctx context.Context,
	exec repositories.SQLExecutor,
	match *models.Match,
	participants []*models.MatchParticipant,
) error {
	throws, err := s.throwRepo.ListByMatch(ctx, match.ID)
	if err != nil {
		return err
	}

	pointsByUser := make(map[int]int)
	dartsByUser := make(map[int]int)
	for _, t := range throws {
		pointsByUser[t.UserID] += t.Points
		dartsByUser[t.UserID]++
	}

	for _, p := range participants {
		stats, err := s.statsRepo.GetByTournamentAndUser(ctx, exec, match.TournamentID, p.UserID)
		if err != nil {
			if !errors.Is(err, repositories.ErrStatisticsNotFound) {
				return err
			}
			stats = &models.PlayerStatistics{
				TournamentID: match.TournamentID,
				UserID:       p.UserID,
			}
		}

		matchAverage := 0.0
		if dartsByUser[p.UserID] > 0 {
			matchAverage = float64(pointsByUser[p.UserID]) / float64(dartsByUser[p.UserID])
		}
		stats.AverageScore = (stats.AverageScore*float64(stats.MatchesPlayed) + matchAverage) /
			float64(stats.MatchesPlayed+1)

		stats.MatchesPlayed++
		won := p.Position != nil && *p.Position == 1
		if won {
			stats.MatchesWon++
		} else {
			stats.MatchesLost++
		}
		if stats.MatchesLost == 0 {
			stats.WinLossRatio = float64(stats.MatchesWon)
		} else {
			stats.WinLossRatio = float64(stats.MatchesWon) / float64(stats.MatchesLost)
		}

		if err := s.statsRepo.Upsert(ctx, exec, stats); err != nil {
			return err
		}
	}
	return nil
}
