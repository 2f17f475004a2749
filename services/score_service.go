package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dartmaster/dartmaster-api/live"
	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/repositories"
	"golang.org/x/sync/errgroup"
)

const (
	maxPointsPerVisit = 180
	throwsPerRound    = 3
)

// ScoreBroadcaster pushes live score updates to websocket subscribers.
type ScoreBroadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

type RecordThrowInput struct {
	Points   int  `json:"points"`
	IsDouble bool `json:"is_double"`
}

type ThrowResult struct {
	Throw    *models.DartThrow `json:"throw"`
	Message  string            `json:"message"`
	Finished bool              `json:"finished"`
}

type PlayerScore struct {
	UserID       int    `json:"user_id"`
	CurrentScore int    `json:"current_score"`
	RoundsPlayed int    `json:"rounds_played"`
	DartsThrown  int    `json:"darts_thrown"`
	Status       string `json:"status"`
}

type MatchScore struct {
	MatchID      int                `json:"match_id"`
	Status       models.MatchStatus `json:"status"`
	PlayerScores []PlayerScore      `json:"player_scores"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type ScoreService interface {
	RecordThrow(ctx context.Context, matchID, playerID int, input RecordThrowInput) (*ThrowResult, error)
	GetMatchScore(ctx context.Context, matchID int) (*MatchScore, error)
	ListThrows(ctx context.Context, matchID int) ([]*models.DartThrow, error)
	UndoLastThrow(ctx context.Context, matchID, playerID int) error
}

type scoreService struct {
	tx              txRunner
	matchRepo       repositories.MatchRepository
	participantRepo repositories.MatchParticipantRepository
	throwRepo       repositories.ThrowRepository
	hub             ScoreBroadcaster
	logger          *slog.Logger
}

func NewScoreService(
	db *sql.DB,
	matchRepo repositories.MatchRepository,
	participantRepo repositories.MatchParticipantRepository,
	throwRepo repositories.ThrowRepository,
	hub ScoreBroadcaster,
	logger *slog.Logger,
) ScoreService {
	return &scoreService{
		tx:              newSQLTxRunner(db),
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		throwRepo:       throwRepo,
		hub:             hub,
		logger:          logger,
	}
}

// applyThrow is the single scoring policy point. A bust (remaining would drop
// below zero) and a non-double checkout are both rejected outright; neither
// leaves a trace in the throw log.
func applyThrow(currentRemaining, points int, isDouble bool) (int, error) {
	remaining := currentRemaining - points
	if remaining < 0 {
		return 0, ErrScoreBust
	}
	if remaining == 0 && !isDouble {
		return 0, ErrMustFinishOnDouble
	}
	return remaining, nil
}

// RecordThrow validates and persists one visit for a live match. The whole
// read-validate-insert sequence runs in a single transaction holding a row
// lock on the thrower's match_participants row, so concurrent submissions for
// the same (match, player) serialize instead of both reading the same
// remaining score.
func (s *scoreService) RecordThrow(ctx context.Context, matchID, playerID int, input RecordThrowInput) (*ThrowResult, error) {
	var result ThrowResult

	err := s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to load match %d: %w", matchID, err)
		}
		if match.Status != models.MatchStatusLive {
			return ErrMatchNotLive
		}

		participant, err := s.participantRepo.LockByMatchAndUser(ctx, exec, matchID, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchParticipantNotFound) {
				return ErrNotMatchParticipant
			}
			return fmt.Errorf("failed to lock participant for match %d user %d: %w", matchID, playerID, err)
		}

		if input.Points < 0 || input.Points > maxPointsPerVisit {
			return ErrPointsOutOfRange
		}

		currentRemaining := match.MatchFormat.StartingScore()
		latest, err := s.throwRepo.LatestByMatchAndPlayer(ctx, exec, matchID, playerID)
		switch {
		case err == nil:
			currentRemaining = latest.RemainingScore
		case errors.Is(err, repositories.ErrThrowNotFound):
			// first visit, count down from the starting score
		default:
			return fmt.Errorf("failed to load latest throw: %w", err)
		}

		newRemaining, err := applyThrow(currentRemaining, input.Points, input.IsDouble)
		if err != nil {
			return err
		}

		thrown, err := s.throwRepo.CountByMatchAndPlayer(ctx, exec, matchID, playerID)
		if err != nil {
			return fmt.Errorf("failed to count throws: %w", err)
		}

		dartThrow := &models.DartThrow{
			MatchID:        matchID,
			UserID:         playerID,
			Points:         input.Points,
			RemainingScore: newRemaining,
			IsDouble:       input.IsDouble,
			RoundNumber:    thrown/throwsPerRound + 1,
			ThrowNumber:    thrown%throwsPerRound + 1,
		}
		if err := s.throwRepo.Create(ctx, exec, dartThrow); err != nil {
			return err
		}
		result.Throw = dartThrow

		if newRemaining == 0 {
			if err := s.matchRepo.UpdateStatus(ctx, exec, matchID, models.MatchStatusWaitingConfirmation); err != nil {
				return err
			}
			zero, first := 0, 1
			if err := s.participantRepo.UpdateResult(ctx, exec, participant.ID, &zero, &first); err != nil {
				return err
			}
			result.Finished = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Finished {
		result.Message = "Match finished!"
	} else {
		result.Message = "Dart recorded"
	}

	s.logger.Info("dart recorded",
		slog.Int("match_id", matchID),
		slog.Int("user_id", playerID),
		slog.Int("points", input.Points),
		slog.Int("remaining", result.Throw.RemainingScore),
	)
	s.broadcastScore(ctx, matchID, result.Finished)

	return &result, nil
}

// GetMatchScore reports the current standing for every participant. It is a
// pure read and valid in any match status; with no throws it reports the
// starting score for everyone.
func (s *scoreService) GetMatchScore(ctx context.Context, matchID int) (*MatchScore, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to load match %d: %w", matchID, err)
	}

	participants, err := s.participantRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}

	startingScore := match.MatchFormat.StartingScore()
	scores := make([]PlayerScore, len(participants))

	g, gCtx := errgroup.WithContext(ctx)
	for i, participant := range participants {
		i, participant := i, participant
		g.Go(func() error {
			score := PlayerScore{
				UserID:       participant.UserID,
				CurrentScore: startingScore,
				Status:       "In Progress",
			}

			latest, err := s.throwRepo.LatestByMatchAndPlayer(gCtx, nil, matchID, participant.UserID)
			if err != nil && !errors.Is(err, repositories.ErrThrowNotFound) {
				return err
			}
			if err == nil {
				score.CurrentScore = latest.RemainingScore

				score.DartsThrown, err = s.throwRepo.CountByMatchAndPlayer(gCtx, nil, matchID, participant.UserID)
				if err != nil {
					return err
				}
				score.RoundsPlayed, err = s.throwRepo.CountRoundsByMatchAndPlayer(gCtx, nil, matchID, participant.UserID)
				if err != nil {
					return err
				}
			}
			if score.CurrentScore == 0 {
				score.Status = "Finished"
			}

			scores[i] = score
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &MatchScore{
		MatchID:      matchID,
		Status:       match.Status,
		PlayerScores: scores,
		UpdatedAt:    time.Now().UTC(),
	}, nil
}

// ListThrows returns the full throw log ordered by player, round, throw.
func (s *scoreService) ListThrows(ctx context.Context, matchID int) ([]*models.DartThrow, error) {
	throws, err := s.throwRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if throws == nil {
		return []*models.DartThrow{}, nil
	}
	return throws, nil
}

// UndoLastThrow removes the player's most recent throw. Undoing the finishing
// throw reverses the finish: the match returns to live and the winner's
// finishing score and position are cleared. Only the single latest throw for
// the given player is ever touched.
func (s *scoreService) UndoLastThrow(ctx context.Context, matchID, playerID int) error {
	err := s.tx.InTx(ctx, func(exec repositories.SQLExecutor) error {
		participant, err := s.participantRepo.LockByMatchAndUser(ctx, exec, matchID, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchParticipantNotFound) {
				return ErrNoThrowsToUndo
			}
			return fmt.Errorf("failed to lock participant for match %d user %d: %w", matchID, playerID, err)
		}

		latest, err := s.throwRepo.LatestByMatchAndPlayer(ctx, exec, matchID, playerID)
		if err != nil {
			if errors.Is(err, repositories.ErrThrowNotFound) {
				return ErrNoThrowsToUndo
			}
			return fmt.Errorf("failed to load latest throw: %w", err)
		}

		match, err := s.matchRepo.GetByID(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("failed to load match %d: %w", matchID, err)
		}
		if match.Status != models.MatchStatusLive && match.Status != models.MatchStatusWaitingConfirmation {
			return ErrMatchStateInvalid
		}

		if err := s.throwRepo.Delete(ctx, exec, latest.ID); err != nil {
			return err
		}

		if match.Status == models.MatchStatusWaitingConfirmation {
			if err := s.participantRepo.UpdateResult(ctx, exec, participant.ID, nil, nil); err != nil {
				return err
			}
			if err := s.matchRepo.UpdateStatus(ctx, exec, matchID, models.MatchStatusLive); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("dart undone", slog.Int("match_id", matchID), slog.Int("user_id", playerID))
	s.broadcastScore(ctx, matchID, false)

	return nil
}

func (s *scoreService) broadcastScore(ctx context.Context, matchID int, finished bool) {
	if s.hub == nil {
		return
	}
	score, err := s.GetMatchScore(ctx, matchID)
	if err != nil {
		s.logger.Error("failed to build score snapshot for broadcast",
			slog.Int("match_id", matchID), slog.Any("error", err))
		return
	}
	messageType := live.MessageScoreUpdated
	if finished {
		messageType = live.MessageMatchFinished
	}
	room := strconv.Itoa(matchID)
	s.hub.BroadcastToRoom(room, live.Message{
		Type:    messageType,
		Payload: score,
		RoomID:  room,
	})
}
