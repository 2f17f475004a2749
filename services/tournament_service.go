package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/repositories"
	"github.com/dartmaster/dartmaster-api/storage"
	"github.com/google/uuid"
)

type CreateTournamentInput struct {
	Name                 string                  `json:"name"`
	Description          *string                 `json:"description"`
	Format               models.TournamentFormat `json:"format"`
	MatchFormat          models.MatchFormat      `json:"match_format"`
	StartDate            time.Time               `json:"start_date"`
	EndDate              *time.Time              `json:"end_date"`
	RegistrationDeadline *time.Time              `json:"registration_deadline"`
	MaxPlayers           int                     `json:"max_players"`
}

type UpdateTournamentInput struct {
	Name                 *string    `json:"name"`
	Description          *string    `json:"description"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxPlayers           *int       `json:"max_players"`
}

type CreateGroupInput struct {
	Name        string `json:"name"`
	GroupNumber int    `json:"group_number"`
}

type TournamentService interface {
	Create(ctx context.Context, adminID int, input CreateTournamentInput) (*models.Tournament, error)
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context) ([]*models.Tournament, error)
	Update(ctx context.Context, id, userID int, input UpdateTournamentInput) (*models.Tournament, error)
	ChangeStatus(ctx context.Context, id, userID int, status models.TournamentStatus) (*models.Tournament, error)
	Delete(ctx context.Context, id, userID int) error

	Register(ctx context.Context, tournamentID, userID int) (*models.TournamentParticipant, error)
	Withdraw(ctx context.Context, tournamentID, userID int) error
	ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error)

	CreateGroup(ctx context.Context, tournamentID, userID int, input CreateGroupInput) (*models.TournamentGroup, error)
	ListGroups(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error)
	DeleteGroup(ctx context.Context, tournamentID, groupID, userID int) error
	AssignGroup(ctx context.Context, tournamentID, participantUserID, userID int, groupID *int) error

	UploadLogo(ctx context.Context, tournamentID, userID int, contentType string, reader io.Reader) (*models.Tournament, error)
	RemoveLogo(ctx context.Context, tournamentID, userID int) error
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	groupRepo       repositories.GroupRepository
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	groupRepo repositories.GroupRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		groupRepo:       groupRepo,
		uploader:        uploader,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, adminID int, input CreateTournamentInput) (*models.Tournament, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, ErrTournamentNameRequired
	}
	if input.StartDate.Before(time.Now()) {
		return nil, ErrTournamentStartInPast
	}
	if input.MaxPlayers < 2 {
		return nil, ErrTournamentInvalidCapacity
	}
	if input.Format == "" {
		input.Format = models.FormatGroup
	}
	if input.MatchFormat != models.MatchFormat301 && input.MatchFormat != models.MatchFormat501 {
		input.MatchFormat = models.MatchFormat501
	}

	tournament := &models.Tournament{
		Name:                 input.Name,
		Description:          input.Description,
		Status:               models.TournamentStatusPlanning,
		Format:               input.Format,
		MatchFormat:          input.MatchFormat,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationDeadline: input.RegistrationDeadline,
		MaxPlayers:           input.MaxPlayers,
		AdminID:              adminID,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, err
	}

	s.logger.Info("tournament created",
		slog.Int("tournament_id", tournament.ID),
		slog.Int("admin_id", adminID),
		slog.String("match_format", string(tournament.MatchFormat)),
	)
	return tournament, nil
}

func (s *tournamentService) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) List(ctx context.Context) ([]*models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tournaments {
		s.populateLogoURL(t)
	}
	return tournaments, nil
}

func (s *tournamentService) Update(ctx context.Context, id, userID int, input UpdateTournamentInput) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentStatusPlanning {
		return nil, ErrTournamentNotPlanning
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrTournamentNameRequired
		}
		tournament.Name = name
	}
	if input.Description != nil {
		tournament.Description = input.Description
	}
	if input.StartDate != nil {
		if input.StartDate.Before(time.Now()) {
			return nil, ErrTournamentStartInPast
		}
		tournament.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		tournament.EndDate = input.EndDate
	}
	if input.RegistrationDeadline != nil {
		tournament.RegistrationDeadline = input.RegistrationDeadline
	}
	if input.MaxPlayers != nil {
		if *input.MaxPlayers < 2 {
			return nil, ErrTournamentInvalidCapacity
		}
		count, err := s.participantRepo.CountByTournament(ctx, id)
		if err != nil {
			return nil, err
		}
		if *input.MaxPlayers < count {
			return nil, ErrTournamentInvalidCapacity
		}
		tournament.MaxPlayers = *input.MaxPlayers
	}

	if err := s.tournamentRepo.Update(ctx, tournament); err != nil {
		return nil, err
	}
	s.populateLogoURL(tournament)
	return tournament, nil
}

// ChangeStatus advances the tournament lifecycle. Only the forward
// transitions planning -> active -> completed are allowed.
func (s *tournamentService) ChangeStatus(ctx context.Context, id, userID int, status models.TournamentStatus) (*models.Tournament, error) {
	tournament, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	valid := (tournament.Status == models.TournamentStatusPlanning && status == models.TournamentStatusActive) ||
		(tournament.Status == models.TournamentStatusActive && status == models.TournamentStatusCompleted)
	if !valid {
		return nil, ErrTournamentInvalidTransition
	}

	if err := s.tournamentRepo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	tournament.Status = status

	s.logger.Info("tournament status changed",
		slog.Int("tournament_id", id), slog.String("status", string(status)))

	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) Delete(ctx context.Context, id, userID int) error {
	tournament, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentStatusPlanning {
		return ErrTournamentNotPlanning
	}

	if tournament.LogoKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
			s.logger.Warn("failed to delete tournament logo from storage",
				slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}

	return s.tournamentRepo.Delete(ctx, id)
}

// Register signs the calling user up for a tournament. Registration is open
// while the tournament is in planning, the deadline has not passed and there
// is capacity left. A withdrawn participant can re-register.
func (s *tournamentService) Register(ctx context.Context, tournamentID, userID int) (*models.TournamentParticipant, error) {
	tournament, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentStatusPlanning {
		return nil, ErrRegistrationClosed
	}
	if tournament.RegistrationDeadline != nil && tournament.RegistrationDeadline.Before(time.Now()) {
		return nil, ErrRegistrationClosed
	}

	count, err := s.participantRepo.CountByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if count >= tournament.MaxPlayers {
		return nil, ErrTournamentFull
	}

	existing, err := s.participantRepo.FindByTournamentAndUser(ctx, tournamentID, userID)
	if err != nil && !errors.Is(err, repositories.ErrParticipantNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status != models.ParticipantStatusWithdrawn {
			return nil, repositories.ErrParticipantConflict
		}
		if err := s.participantRepo.UpdateStatus(ctx, existing.ID, models.ParticipantStatusRegistered); err != nil {
			return nil, err
		}
		existing.Status = models.ParticipantStatusRegistered
		return existing, nil
	}

	participant := &models.TournamentParticipant{
		TournamentID: tournamentID,
		UserID:       userID,
		Status:       models.ParticipantStatusRegistered,
	}
	if err := s.participantRepo.Create(ctx, participant); err != nil {
		return nil, err
	}

	s.logger.Info("player registered for tournament",
		slog.Int("tournament_id", tournamentID), slog.Int("user_id", userID))
	return participant, nil
}

func (s *tournamentService) Withdraw(ctx context.Context, tournamentID, userID int) error {
	tournament, err := s.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if tournament.Status == models.TournamentStatusCompleted {
		return ErrTournamentCompleted
	}

	participant, err := s.participantRepo.FindByTournamentAndUser(ctx, tournamentID, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	if participant.Status == models.ParticipantStatusWithdrawn {
		return ErrParticipantAlreadyWithdrawn
	}

	return s.participantRepo.UpdateStatus(ctx, participant.ID, models.ParticipantStatusWithdrawn)
}

func (s *tournamentService) ListParticipants(ctx context.Context, tournamentID int) ([]*models.TournamentParticipant, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.participantRepo.ListByTournament(ctx, tournamentID)
}

func (s *tournamentService) CreateGroup(ctx context.Context, tournamentID, userID int, input CreateGroupInput) (*models.TournamentGroup, error) {
	tournament, err := s.getOwned(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}
	if tournament.Status != models.TournamentStatusPlanning {
		return nil, ErrTournamentNotPlanning
	}

	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		input.Name = fmt.Sprintf("Group %d", input.GroupNumber)
	}

	group := &models.TournamentGroup{
		TournamentID: tournamentID,
		Name:         input.Name,
		GroupNumber:  input.GroupNumber,
	}
	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (s *tournamentService) ListGroups(ctx context.Context, tournamentID int) ([]*models.TournamentGroup, error) {
	if _, err := s.GetByID(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.groupRepo.ListByTournament(ctx, tournamentID)
}

func (s *tournamentService) DeleteGroup(ctx context.Context, tournamentID, groupID, userID int) error {
	tournament, err := s.getOwned(ctx, tournamentID, userID)
	if err != nil {
		return err
	}
	if tournament.Status != models.TournamentStatusPlanning {
		return ErrTournamentNotPlanning
	}

	group, err := s.groupRepo.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrGroupNotFound) {
			return ErrGroupNotFound
		}
		return err
	}
	if group.TournamentID != tournamentID {
		return ErrGroupTournamentMismatch
	}

	return s.groupRepo.Delete(ctx, groupID)
}

func (s *tournamentService) AssignGroup(ctx context.Context, tournamentID, participantUserID, userID int, groupID *int) error {
	if _, err := s.getOwned(ctx, tournamentID, userID); err != nil {
		return err
	}

	if groupID != nil {
		group, err := s.groupRepo.GetByID(ctx, *groupID)
		if err != nil {
			if errors.Is(err, repositories.ErrGroupNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		if group.TournamentID != tournamentID {
			return ErrGroupTournamentMismatch
		}
	}

	participant, err := s.participantRepo.FindByTournamentAndUser(ctx, tournamentID, participantUserID)
	if err != nil {
		if errors.Is(err, repositories.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}

	return s.participantRepo.UpdateGroup(ctx, participant.ID, groupID)
}

func (s *tournamentService) UploadLogo(ctx context.Context, tournamentID, userID int, contentType string, reader io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrLogoUploadsDisabled
	}

	tournament, err := s.getOwned(ctx, tournamentID, userID)
	if err != nil {
		return nil, err
	}

	ext := "bin"
	switch contentType {
	case "image/png":
		ext = "png"
	case "image/jpeg":
		ext = "jpg"
	case "image/webp":
		ext = "webp"
	}
	key := fmt.Sprintf("tournaments/%d/logo-%s.%s", tournamentID, uuid.NewString(), ext)

	result, err := s.uploader.Upload(ctx, key, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload logo: %w", err)
	}

	if err := s.tournamentRepo.UpdateLogoKey(ctx, tournamentID, &result.Key); err != nil {
		return nil, err
	}

	if tournament.LogoKey != nil && *tournament.LogoKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *tournament.LogoKey); delErr != nil {
			s.logger.Warn("failed to delete previous tournament logo",
				slog.Int("tournament_id", tournamentID), slog.Any("error", delErr))
		}
	}

	tournament.LogoKey = &result.Key
	s.populateLogoURL(tournament)
	return tournament, nil
}

func (s *tournamentService) RemoveLogo(ctx context.Context, tournamentID, userID int) error {
	if s.uploader == nil {
		return ErrLogoUploadsDisabled
	}

	tournament, err := s.getOwned(ctx, tournamentID, userID)
	if err != nil {
		return err
	}
	if tournament.LogoKey == nil {
		return nil
	}

	if err := s.uploader.Delete(ctx, *tournament.LogoKey); err != nil {
		return fmt.Errorf("failed to delete logo from storage: %w", err)
	}
	return s.tournamentRepo.UpdateLogoKey(ctx, tournamentID, nil)
}

// getOwned loads a tournament and checks that userID is its admin.
func (s *tournamentService) getOwned(ctx context.Context, id, userID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.AdminID != userID {
		return nil, ErrAdminOnly
	}
	return tournament, nil
}

func (s *tournamentService) populateLogoURL(t *models.Tournament) {
	if t.LogoKey == nil || s.uploader == nil {
		return
	}
	url := s.uploader.GetPublicURL(*t.LogoKey)
	if url != "" {
		t.LogoURL = &url
	}
}
