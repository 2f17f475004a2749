package services

import (
	"context"
	"testing"

	"github.com/dartmaster/dartmaster-api/live"
	"github.com/dartmaster/dartmaster-api/models"
	"github.com/stretchr/testify/require"
)

const (
	testMatchID  = 7
	playerOne    = 10
	playerTwo    = 20
	outsiderUser = 99
)

func newTestScoreService(format models.MatchFormat, status models.MatchStatus) (*scoreService, *fakeMatchRepo, *fakeMatchParticipantRepo, *fakeThrowRepo, *fakeBroadcaster) {
	matchRepo := newFakeMatchRepo(&models.Match{
		ID:           testMatchID,
		TournamentID: 1,
		MatchFormat:  format,
		Status:       status,
	})
	participantRepo := newFakeMatchParticipantRepo(
		&models.MatchParticipant{MatchID: testMatchID, UserID: playerOne},
		&models.MatchParticipant{MatchID: testMatchID, UserID: playerTwo},
	)
	throwRepo := newFakeThrowRepo()
	hub := &fakeBroadcaster{}

	svc := &scoreService{
		tx:              passTxRunner{},
		matchRepo:       matchRepo,
		participantRepo: participantRepo,
		throwRepo:       throwRepo,
		hub:             hub,
		logger:          discardLogger(),
	}
	return svc, matchRepo, participantRepo, throwRepo, hub
}

func TestApplyThrow(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		points   int
		isDouble bool
		want     int
		wantErr  error
	}{
		{name: "normal scoring", current: 501, points: 140, want: 361},
		{name: "zero points", current: 301, points: 0, want: 301},
		{name: "bust below zero", current: 40, points: 41, wantErr: ErrScoreBust},
		{name: "checkout without double", current: 40, points: 40, wantErr: ErrMustFinishOnDouble},
		{name: "checkout with double", current: 40, points: 40, isDouble: true, want: 0},
		{name: "down to one is allowed", current: 40, points: 39, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyThrow(tt.current, tt.points, tt.isDouble)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRecordThrowValidation(t *testing.T) {
	tests := []struct {
		name     string
		matchID  int
		playerID int
		status   models.MatchStatus
		input    RecordThrowInput
		wantErr  error
	}{
		{
			name:     "unknown match",
			matchID:  999,
			playerID: playerOne,
			status:   models.MatchStatusLive,
			input:    RecordThrowInput{Points: 60},
			wantErr:  ErrMatchNotFound,
		},
		{
			name:     "match not live",
			matchID:  testMatchID,
			playerID: playerOne,
			status:   models.MatchStatusScheduled,
			input:    RecordThrowInput{Points: 60},
			wantErr:  ErrMatchNotLive,
		},
		{
			name:     "completed match rejects throws",
			matchID:  testMatchID,
			playerID: playerOne,
			status:   models.MatchStatusCompleted,
			input:    RecordThrowInput{Points: 60},
			wantErr:  ErrMatchNotLive,
		},
		{
			name:     "not a participant",
			matchID:  testMatchID,
			playerID: outsiderUser,
			status:   models.MatchStatusLive,
			input:    RecordThrowInput{Points: 60},
			wantErr:  ErrNotMatchParticipant,
		},
		{
			name:     "negative points",
			matchID:  testMatchID,
			playerID: playerOne,
			status:   models.MatchStatusLive,
			input:    RecordThrowInput{Points: -1},
			wantErr:  ErrPointsOutOfRange,
		},
		{
			name:     "points above maximum",
			matchID:  testMatchID,
			playerID: playerOne,
			status:   models.MatchStatusLive,
			input:    RecordThrowInput{Points: 181},
			wantErr:  ErrPointsOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _, throwRepo, _ := newTestScoreService(models.MatchFormat501, tt.status)

			_, err := svc.RecordThrow(context.Background(), tt.matchID, tt.playerID, tt.input)
			require.ErrorIs(t, err, tt.wantErr)
			require.Empty(t, throwRepo.throws, "rejected throws must not be persisted")
		})
	}
}

func TestRecordThrowCountsDown(t *testing.T) {
	svc, _, _, _, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusLive)
	ctx := context.Background()

	first, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 140})
	require.NoError(t, err)
	require.Equal(t, 361, first.Throw.RemainingScore)
	require.Equal(t, "Dart recorded", first.Message)
	require.False(t, first.Finished)

	second, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 60})
	require.NoError(t, err)
	require.Equal(t, 301, second.Throw.RemainingScore)

	// the other player counts down independently
	other, err := svc.RecordThrow(ctx, testMatchID, playerTwo, RecordThrowInput{Points: 26})
	require.NoError(t, err)
	require.Equal(t, 475, other.Throw.RemainingScore)
}

func TestRecordThrowRoundNumbering(t *testing.T) {
	svc, _, _, _, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusLive)
	ctx := context.Background()

	type position struct{ round, throw int }
	want := []position{{1, 1}, {1, 2}, {1, 3}, {2, 1}, {2, 2}, {2, 3}, {3, 1}}

	for i, expected := range want {
		result, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 1})
		require.NoError(t, err, "throw %d", i+1)
		require.Equal(t, expected.round, result.Throw.RoundNumber, "round of throw %d", i+1)
		require.Equal(t, expected.throw, result.Throw.ThrowNumber, "index of throw %d", i+1)
	}
}

func TestRecordThrowCheckout(t *testing.T) {
	svc, matchRepo, participantRepo, _, hub := newTestScoreService(models.MatchFormat301, models.MatchStatusLive)
	ctx := context.Background()

	_, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 140})
	require.NoError(t, err)
	_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 121})
	require.NoError(t, err)

	result, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 40, IsDouble: true})
	require.NoError(t, err)
	require.True(t, result.Finished)
	require.Equal(t, "Match finished!", result.Message)
	require.Equal(t, 0, result.Throw.RemainingScore)

	match := matchRepo.matches[testMatchID]
	require.Equal(t, models.MatchStatusWaitingConfirmation, match.Status)

	winner, err := participantRepo.FindByMatchAndUser(ctx, nil, testMatchID, playerOne)
	require.NoError(t, err)
	require.NotNil(t, winner.FinishingScore)
	require.Equal(t, 0, *winner.FinishingScore)
	require.NotNil(t, winner.Position)
	require.Equal(t, 1, *winner.Position)

	last := hub.messages[len(hub.messages)-1]
	require.Equal(t, "7", last.room)
	message, ok := last.payload.(live.Message)
	require.True(t, ok)
	require.Equal(t, live.MessageMatchFinished, message.Type)
}

func TestRecordThrowBustLeavesScoreUntouched(t *testing.T) {
	svc, _, _, throwRepo, _ := newTestScoreService(models.MatchFormat301, models.MatchStatusLive)
	ctx := context.Background()

	_, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 180})
	require.NoError(t, err)

	_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 122})
	require.ErrorIs(t, err, ErrScoreBust)
	require.Len(t, throwRepo.throws, 1)

	// the next throw still counts down from the pre-bust remaining
	result, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 21})
	require.NoError(t, err)
	require.Equal(t, 100, result.Throw.RemainingScore)
}

func TestGetMatchScore(t *testing.T) {
	svc, _, _, _, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusLive)
	ctx := context.Background()

	score, err := svc.GetMatchScore(ctx, testMatchID)
	require.NoError(t, err)
	require.Len(t, score.PlayerScores, 2)
	for _, ps := range score.PlayerScores {
		require.Equal(t, 501, ps.CurrentScore)
		require.Equal(t, 0, ps.DartsThrown)
		require.Equal(t, 0, ps.RoundsPlayed)
		require.Equal(t, "In Progress", ps.Status)
	}

	for i := 0; i < 4; i++ {
		_, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 50})
		require.NoError(t, err)
	}

	score, err = svc.GetMatchScore(ctx, testMatchID)
	require.NoError(t, err)

	byUser := make(map[int]PlayerScore)
	for _, ps := range score.PlayerScores {
		byUser[ps.UserID] = ps
	}
	require.Equal(t, 301, byUser[playerOne].CurrentScore)
	require.Equal(t, 4, byUser[playerOne].DartsThrown)
	require.Equal(t, 2, byUser[playerOne].RoundsPlayed)
	require.Equal(t, 501, byUser[playerTwo].CurrentScore)

	_, err = svc.GetMatchScore(ctx, 999)
	require.ErrorIs(t, err, ErrMatchNotFound)
}

func TestGetMatchScoreMarksFinishedPlayer(t *testing.T) {
	svc, _, _, _, _ := newTestScoreService(models.MatchFormat301, models.MatchStatusLive)
	ctx := context.Background()

	_, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 180})
	require.NoError(t, err)
	_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 81})
	require.NoError(t, err)
	_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 40, IsDouble: true})
	require.NoError(t, err)

	score, err := svc.GetMatchScore(ctx, testMatchID)
	require.NoError(t, err)
	require.Equal(t, models.MatchStatusWaitingConfirmation, score.Status)

	for _, ps := range score.PlayerScores {
		if ps.UserID == playerOne {
			require.Equal(t, 0, ps.CurrentScore)
			require.Equal(t, "Finished", ps.Status)
		} else {
			require.Equal(t, "In Progress", ps.Status)
		}
	}
}

func TestUndoLastThrow(t *testing.T) {
	t.Run("nothing to undo", func(t *testing.T) {
		svc, _, _, _, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusLive)
		err := svc.UndoLastThrow(context.Background(), testMatchID, playerOne)
		require.ErrorIs(t, err, ErrNoThrowsToUndo)
	})

	t.Run("outsider has nothing to undo", func(t *testing.T) {
		svc, _, _, _, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusLive)
		err := svc.UndoLastThrow(context.Background(), testMatchID, outsiderUser)
		require.ErrorIs(t, err, ErrNoThrowsToUndo)
	})

	t.Run("removes only the latest throw", func(t *testing.T) {
		svc, _, _, throwRepo, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusLive)
		ctx := context.Background()

		_, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 100})
		require.NoError(t, err)
		_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 60})
		require.NoError(t, err)

		require.NoError(t, svc.UndoLastThrow(ctx, testMatchID, playerOne))
		require.Len(t, throwRepo.throws, 1)

		latest, err := throwRepo.LatestByMatchAndPlayer(ctx, nil, testMatchID, playerOne)
		require.NoError(t, err)
		require.Equal(t, 401, latest.RemainingScore)
	})

	t.Run("reverts a finish", func(t *testing.T) {
		svc, matchRepo, participantRepo, _, _ := newTestScoreService(models.MatchFormat301, models.MatchStatusLive)
		ctx := context.Background()

		_, err := svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 180})
		require.NoError(t, err)
		_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 81})
		require.NoError(t, err)
		_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 40, IsDouble: true})
		require.NoError(t, err)
		require.Equal(t, models.MatchStatusWaitingConfirmation, matchRepo.matches[testMatchID].Status)

		require.NoError(t, svc.UndoLastThrow(ctx, testMatchID, playerOne))

		require.Equal(t, models.MatchStatusLive, matchRepo.matches[testMatchID].Status)
		winner, err := participantRepo.FindByMatchAndUser(ctx, nil, testMatchID, playerOne)
		require.NoError(t, err)
		require.Nil(t, winner.FinishingScore)
		require.Nil(t, winner.Position)

		// score is back to the pre-checkout remaining
		score, err := svc.GetMatchScore(ctx, testMatchID)
		require.NoError(t, err)
		for _, ps := range score.PlayerScores {
			if ps.UserID == playerOne {
				require.Equal(t, 40, ps.CurrentScore)
			}
		}
	})

	t.Run("rejected for completed matches", func(t *testing.T) {
		svc, _, _, throwRepo, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusCompleted)
		ctx := context.Background()
		throwRepo.throws = append(throwRepo.throws, &models.DartThrow{
			ID: 1, MatchID: testMatchID, UserID: playerOne, Points: 60, RemainingScore: 441,
			RoundNumber: 1, ThrowNumber: 1,
		})

		err := svc.UndoLastThrow(ctx, testMatchID, playerOne)
		require.ErrorIs(t, err, ErrMatchStateInvalid)
	})
}

func TestListThrows(t *testing.T) {
	svc, _, _, _, _ := newTestScoreService(models.MatchFormat501, models.MatchStatusLive)
	ctx := context.Background()

	throws, err := svc.ListThrows(ctx, testMatchID)
	require.NoError(t, err)
	require.Empty(t, throws)

	_, err = svc.RecordThrow(ctx, testMatchID, playerTwo, RecordThrowInput{Points: 45})
	require.NoError(t, err)
	_, err = svc.RecordThrow(ctx, testMatchID, playerOne, RecordThrowInput{Points: 60})
	require.NoError(t, err)

	throws, err = svc.ListThrows(ctx, testMatchID)
	require.NoError(t, err)
	require.Len(t, throws, 2)
	// ordered by player, not submission time
	require.Equal(t, playerOne, throws[0].UserID)
	require.Equal(t, playerTwo, throws[1].UserID)
}
