package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/repositories"
)

const maxMatchPlayers = 2

type CreateMatchInput struct {
	GroupID        *int                `json:"group_id"`
	MatchFormat    *models.MatchFormat `json:"match_format"`
	ScheduledStart *time.Time          `json:"scheduled_start"`
	PlayerIDs      []int               `json:"player_ids"`
}

type MatchService interface {
	Create(ctx context.Context, tournamentID, userID int, input CreateMatchInput) (*models.Match, error)
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	AddPlayer(ctx context.Context, matchID, playerID, userID int) (*models.MatchParticipant, error)
	Start(ctx context.Context, matchID, userID int) (*models.Match, error)
	Delete(ctx context.Context, matchID, userID int) error
}

type matchService struct {
	tournamentRepo       repositories.TournamentRepository
	participantRepo      repositories.ParticipantRepository
	groupRepo            repositories.GroupRepository
	matchRepo            repositories.MatchRepository
	matchParticipantRepo repositories.MatchParticipantRepository
	logger               *slog.Logger
}

func NewMatchService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	groupRepo repositories.GroupRepository,
	matchRepo repositories.MatchRepository,
	matchParticipantRepo repositories.MatchParticipantRepository,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		tournamentRepo:       tournamentRepo,
		participantRepo:      participantRepo,
		groupRepo:            groupRepo,
		matchRepo:            matchRepo,
		matchParticipantRepo: matchParticipantRepo,
		logger:               logger,
	}
}

// Create schedules a new match. The match format defaults to the
// tournament's format; players can be attached right away or later through
// AddPlayer.
func (s *matchService) Create(ctx context.Context, tournamentID, userID int, input CreateMatchInput) (*models.Match, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.AdminID != userID {
		return nil, ErrAdminOnly
	}
	if tournament.Status == models.TournamentStatusCompleted {
		return nil, ErrTournamentCompleted
	}

	format := tournament.MatchFormat
	if input.MatchFormat != nil {
		if *input.MatchFormat != models.MatchFormat301 && *input.MatchFormat != models.MatchFormat501 {
			return nil, fmt.Errorf("unsupported match format %q", *input.MatchFormat)
		}
		format = *input.MatchFormat
	}

	if input.GroupID != nil {
		group, err := s.groupRepo.GetByID(ctx, *input.GroupID)
		if err != nil {
			if errors.Is(err, repositories.ErrGroupNotFound) {
				return nil, ErrGroupNotFound
			}
			return nil, err
		}
		if group.TournamentID != tournamentID {
			return nil, ErrGroupTournamentMismatch
		}
	}

	if len(input.PlayerIDs) > maxMatchPlayers {
		return nil, ErrMatchFull
	}
	for _, playerID := range input.PlayerIDs {
		if err := s.checkTournamentPlayer(ctx, tournamentID, playerID); err != nil {
			return nil, err
		}
	}

	match := &models.Match{
		TournamentID:   tournamentID,
		GroupID:        input.GroupID,
		MatchFormat:    format,
		Status:         models.MatchStatusScheduled,
		ScheduledStart: input.ScheduledStart,
	}
	if err := s.matchRepo.Create(ctx, match); err != nil {
		return nil, err
	}

	for _, playerID := range input.PlayerIDs {
		participant := &models.MatchParticipant{MatchID: match.ID, UserID: playerID}
		if err := s.matchParticipantRepo.Create(ctx, participant); err != nil {
			return nil, err
		}
		match.Participants = append(match.Participants, participant)
	}

	s.logger.Info("match created",
		slog.Int("match_id", match.ID),
		slog.Int("tournament_id", tournamentID),
		slog.String("format", string(format)),
	)
	return match, nil
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	participants, err := s.matchParticipantRepo.ListByMatch(ctx, nil, matchID)
	if err != nil {
		return nil, err
	}
	match.Participants = participants
	return match, nil
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}

func (s *matchService) AddPlayer(ctx context.Context, matchID, playerID, userID int) (*models.MatchParticipant, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.Status != models.MatchStatusScheduled {
		return nil, ErrMatchNotScheduled
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.AdminID != userID {
		return nil, ErrAdminOnly
	}

	if err := s.checkTournamentPlayer(ctx, match.TournamentID, playerID); err != nil {
		return nil, err
	}

	count, err := s.matchParticipantRepo.CountByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if count >= maxMatchPlayers {
		return nil, ErrMatchFull
	}

	participant := &models.MatchParticipant{MatchID: matchID, UserID: playerID}
	if err := s.matchParticipantRepo.Create(ctx, participant); err != nil {
		return nil, err
	}
	return participant, nil
}

// Start moves a scheduled match to live and stamps the actual start time.
// Any match participant or the tournament admin may start it.
func (s *matchService) Start(ctx context.Context, matchID, userID int) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.Status != models.MatchStatusScheduled {
		return nil, ErrMatchInvalidTransition
	}

	allowed, err := s.canControlMatch(ctx, match, userID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbiddenOperation
	}

	count, err := s.matchParticipantRepo.CountByMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if count < 2 {
		return nil, fmt.Errorf("match %d needs two players to start: %w", matchID, ErrMatchInvalidTransition)
	}

	now := time.Now().UTC()
	if err := s.matchRepo.UpdateStatus(ctx, nil, matchID, models.MatchStatusLive); err != nil {
		return nil, err
	}
	if err := s.matchRepo.SetActualStart(ctx, nil, matchID, now); err != nil {
		return nil, err
	}

	match.Status = models.MatchStatusLive
	match.ActualStart = &now

	s.logger.Info("match started", slog.Int("match_id", matchID), slog.Int("user_id", userID))
	return match, nil
}

func (s *matchService) Delete(ctx context.Context, matchID, userID int) error {
	match, err := s.matchRepo.GetByID(ctx, nil, matchID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchNotFound) {
			return ErrMatchNotFound
		}
		return err
	}
	if match.Status != models.MatchStatusScheduled {
		return ErrMatchNotScheduled
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return err
	}
	if tournament.AdminID != userID {
		return ErrAdminOnly
	}

	return s.matchRepo.Delete(ctx, matchID)
}

// checkTournamentPlayer verifies the player holds an active registration in
// the tournament.
func (s *matchService) checkTournamentPlayer(ctx context.Context, tournamentID, playerID int) error {
	registration, err := s.participantRepo.FindByTournamentAndUser(ctx, tournamentID, playerID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrNotTournamentPlayer
		}
		return err
	}
	if registration.Status == models.ParticipantStatusWithdrawn {
		return ErrNotTournamentPlayer
	}
	return nil
}

func (s *matchService) canControlMatch(ctx context.Context, match *models.Match, userID int) (bool, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return false, err
	}
	if tournament.AdminID == userID {
		return true, nil
	}

	_, err = s.matchParticipantRepo.FindByMatchAndUser(ctx, nil, match.ID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrMatchParticipantNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
