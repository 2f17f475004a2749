package services

import (
	"context"
	"testing"

	"github.com/dartmaster/dartmaster-api/models"
	"github.com/stretchr/testify/require"
)

const (
	adminUser        = 100
	testTournamentID = 1
)

func newTestMatchService() (*matchService, *fakeMatchRepo, *fakeMatchParticipantRepo) {
	tournamentRepo := newFakeTournamentRepo(&models.Tournament{
		ID:          testTournamentID,
		Name:        "Spring Open",
		Status:      models.TournamentStatusActive,
		MatchFormat: models.MatchFormat501,
		AdminID:     adminUser,
		MaxPlayers:  16,
	})
	participantRepo := newFakeParticipantRepo(
		&models.TournamentParticipant{TournamentID: testTournamentID, UserID: playerOne, Status: models.ParticipantStatusActive},
		&models.TournamentParticipant{TournamentID: testTournamentID, UserID: playerTwo, Status: models.ParticipantStatusRegistered},
		&models.TournamentParticipant{TournamentID: testTournamentID, UserID: 30, Status: models.ParticipantStatusWithdrawn},
	)
	groupRepo := newFakeGroupRepo(
		&models.TournamentGroup{ID: 1, TournamentID: testTournamentID, Name: "Group A", GroupNumber: 1},
		&models.TournamentGroup{ID: 2, TournamentID: 2, Name: "Other", GroupNumber: 1},
	)
	matchRepo := newFakeMatchRepo()
	matchParticipantRepo := newFakeMatchParticipantRepo()

	svc := &matchService{
		tournamentRepo:       tournamentRepo,
		participantRepo:      participantRepo,
		groupRepo:            groupRepo,
		matchRepo:            matchRepo,
		matchParticipantRepo: matchParticipantRepo,
		logger:               discardLogger(),
	}
	return svc, matchRepo, matchParticipantRepo
}

func TestCreateMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to the tournament format", func(t *testing.T) {
		svc, _, _ := newTestMatchService()

		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{
			PlayerIDs: []int{playerOne, playerTwo},
		})
		require.NoError(t, err)
		require.Equal(t, models.MatchFormat501, match.MatchFormat)
		require.Equal(t, models.MatchStatusScheduled, match.Status)
		require.Len(t, match.Participants, 2)
	})

	t.Run("explicit format overrides", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		format := models.MatchFormat301

		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{MatchFormat: &format})
		require.NoError(t, err)
		require.Equal(t, models.MatchFormat301, match.MatchFormat)
	})

	t.Run("only the tournament admin may create", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		_, err := svc.Create(ctx, testTournamentID, playerOne, CreateMatchInput{})
		require.ErrorIs(t, err, ErrAdminOnly)
	})

	t.Run("rejects players without a registration", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		_, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{outsiderUser}})
		require.ErrorIs(t, err, ErrNotTournamentPlayer)
	})

	t.Run("rejects withdrawn players", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		_, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{30}})
		require.ErrorIs(t, err, ErrNotTournamentPlayer)
	})

	t.Run("rejects more than two players", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		_, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{1, 2, 3}})
		require.ErrorIs(t, err, ErrMatchFull)
	})

	t.Run("rejects a group from another tournament", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		foreignGroup := 2
		_, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{GroupID: &foreignGroup})
		require.ErrorIs(t, err, ErrGroupTournamentMismatch)
	})

	t.Run("unknown tournament", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		_, err := svc.Create(ctx, 999, adminUser, CreateMatchInput{})
		require.ErrorIs(t, err, ErrTournamentNotFound)
	})
}

func TestAddPlayerToMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("fills the second slot", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne}})
		require.NoError(t, err)

		participant, err := svc.AddPlayer(ctx, match.ID, playerTwo, adminUser)
		require.NoError(t, err)
		require.Equal(t, playerTwo, participant.UserID)
	})

	t.Run("rejects a third player", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne, playerTwo}})
		require.NoError(t, err)

		_, err = svc.AddPlayer(ctx, match.ID, 30, adminUser)
		require.ErrorIs(t, err, ErrNotTournamentPlayer)

		// a registered third player still bounces off the match capacity
		withdrawnFixed := svc.participantRepo.(*fakeParticipantRepo)
		withdrawnFixed.registrations[2].Status = models.ParticipantStatusActive
		_, err = svc.AddPlayer(ctx, match.ID, 30, adminUser)
		require.ErrorIs(t, err, ErrMatchFull)
	})

	t.Run("only for scheduled matches", func(t *testing.T) {
		svc, matchRepo, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne}})
		require.NoError(t, err)
		matchRepo.matches[match.ID].Status = models.MatchStatusLive

		_, err = svc.AddPlayer(ctx, match.ID, playerTwo, adminUser)
		require.ErrorIs(t, err, ErrMatchNotScheduled)
	})
}

func TestStartMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("participant starts the match", func(t *testing.T) {
		svc, matchRepo, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne, playerTwo}})
		require.NoError(t, err)

		started, err := svc.Start(ctx, match.ID, playerOne)
		require.NoError(t, err)
		require.Equal(t, models.MatchStatusLive, started.Status)
		require.NotNil(t, started.ActualStart)
		require.Equal(t, models.MatchStatusLive, matchRepo.matches[match.ID].Status)
	})

	t.Run("admin may start without playing", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne, playerTwo}})
		require.NoError(t, err)

		_, err = svc.Start(ctx, match.ID, adminUser)
		require.NoError(t, err)
	})

	t.Run("outsider may not start", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne, playerTwo}})
		require.NoError(t, err)

		_, err = svc.Start(ctx, match.ID, outsiderUser)
		require.ErrorIs(t, err, ErrForbiddenOperation)
	})

	t.Run("needs two players", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne}})
		require.NoError(t, err)

		_, err = svc.Start(ctx, match.ID, playerOne)
		require.ErrorIs(t, err, ErrMatchInvalidTransition)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne, playerTwo}})
		require.NoError(t, err)

		_, err = svc.Start(ctx, match.ID, playerOne)
		require.NoError(t, err)
		_, err = svc.Start(ctx, match.ID, playerOne)
		require.ErrorIs(t, err, ErrMatchInvalidTransition)
	})
}

func TestDeleteMatch(t *testing.T) {
	ctx := context.Background()

	t.Run("admin deletes a scheduled match", func(t *testing.T) {
		svc, matchRepo, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{})
		require.NoError(t, err)

		require.NoError(t, svc.Delete(ctx, match.ID, adminUser))
		require.NotContains(t, matchRepo.matches, match.ID)
	})

	t.Run("players may not delete", func(t *testing.T) {
		svc, _, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne}})
		require.NoError(t, err)

		err = svc.Delete(ctx, match.ID, playerOne)
		require.ErrorIs(t, err, ErrAdminOnly)
	})

	t.Run("live matches are protected", func(t *testing.T) {
		svc, matchRepo, _ := newTestMatchService()
		match, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{})
		require.NoError(t, err)
		matchRepo.matches[match.ID].Status = models.MatchStatusLive

		err = svc.Delete(ctx, match.ID, adminUser)
		require.ErrorIs(t, err, ErrMatchNotScheduled)
	})
}

func TestGetMatchByID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestMatchService()

	created, err := svc.Create(ctx, testTournamentID, adminUser, CreateMatchInput{PlayerIDs: []int{playerOne, playerTwo}})
	require.NoError(t, err)

	match, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, match.Participants, 2)

	_, err = svc.GetByID(ctx, 999)
	require.ErrorIs(t, err, ErrMatchNotFound)
}
