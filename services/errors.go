package services

import "errors"

// Shared service errors, mapped to HTTP statuses in the handlers package.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Authentication
	ErrAuthInvalidCredentials = errors.New("invalid email or password")
	ErrAuthUserInactive       = errors.New("user account is inactive")
	ErrAuthInvalidRefresh     = errors.New("invalid or expired refresh token")
	ErrPasswordTooShort       = errors.New("password is too short")

	// Authorization
	ErrForbiddenOperation = errors.New("operation not allowed for the current user")
	ErrAdminOnly          = errors.New("only the tournament admin can perform this action")

	// Tournament validation and business rules
	ErrTournamentNotFound           = errors.New("tournament not found")
	ErrTournamentNameRequired       = errors.New("tournament name is required")
	ErrTournamentStartInPast        = errors.New("tournament start date must be in the future")
	ErrTournamentInvalidCapacity    = errors.New("tournament must allow at least 2 players")
	ErrTournamentNotPlanning        = errors.New("tournament can only be modified while in planning")
	ErrTournamentCompleted          = errors.New("tournament is already completed")
	ErrTournamentInvalidTransition  = errors.New("invalid tournament status transition")
	ErrRegistrationClosed           = errors.New("tournament registration deadline has passed")
	ErrTournamentFull               = errors.New("tournament registration is full")
	ErrLogoUploadsDisabled          = errors.New("logo storage is not configured")
	ErrGroupNotFound                = errors.New("tournament group not found")
	ErrGroupTournamentMismatch      = errors.New("group does not belong to this tournament")
	ErrParticipantNotFound          = errors.New("participant registration not found")
	ErrParticipantAlreadyWithdrawn  = errors.New("participant has already withdrawn")

	// Match lifecycle
	ErrMatchNotFound          = errors.New("match not found")
	ErrMatchNotScheduled      = errors.New("operation is only allowed for scheduled matches")
	ErrMatchInvalidTransition = errors.New("invalid match status transition")
	ErrMatchFull              = errors.New("match already has the maximum number of players")
	ErrNotTournamentPlayer    = errors.New("user is not registered in this tournament")

	// Scoring engine
	ErrMatchNotLive        = errors.New("match is not in progress")
	ErrMatchStateInvalid   = errors.New("operation not allowed in the current match state")
	ErrNotMatchParticipant = errors.New("user is not a participant in this match")
	ErrPointsOutOfRange    = errors.New("points must be between 0 and 180")
	ErrScoreBust           = errors.New("score would go below zero - bust")
	ErrMustFinishOnDouble  = errors.New("must finish with a double")
	ErrNoThrowsToUndo      = errors.New("no darts to undo")

	// Confirmation
	ErrNothingToConfirm = errors.New("match is not waiting for confirmation")
)
