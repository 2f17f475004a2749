package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dartmaster/dartmaster-api/repositories"
	"github.com/dartmaster/dartmaster-api/services"
	"github.com/go-chi/chi/v5"
)

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

// idParam parses a numeric chi URL parameter.
func idParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return id, nil
}

func errorResponse(w http.ResponseWriter, r *http.Request, status int, message interface{}) {
	env := jsonResponse{"error": message}
	if err := writeJSON(w, status, env, nil); err != nil {
		slog.Error("failed to write error response", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal server error",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func notFoundResponse(w http.ResponseWriter, r *http.Request) {
	errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

func conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusConflict, message)
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, message)
}

func forbiddenResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusForbidden, message)
}

func unprocessableResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnprocessableEntity, message)
}

// mapServiceErrorToHTTP translates service layer errors into HTTP responses.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	// Missing resources
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, services.ErrTournamentNotFound),
		errors.Is(err, services.ErrGroupNotFound),
		errors.Is(err, services.ErrParticipantNotFound),
		errors.Is(err, services.ErrMatchNotFound),
		errors.Is(err, services.ErrNoThrowsToUndo):
		notFoundResponse(w, r)

	// Conflicts
	case errors.Is(err, repositories.ErrUserEmailConflict),
		errors.Is(err, repositories.ErrUserNicknameConflict),
		errors.Is(err, repositories.ErrParticipantConflict),
		errors.Is(err, repositories.ErrMatchParticipantConflict),
		errors.Is(err, repositories.ErrGroupNumberConflict),
		errors.Is(err, services.ErrTournamentFull),
		errors.Is(err, services.ErrMatchFull):
		conflictResponse(w, r, err.Error())

	// Invalid state for the operation
	case errors.Is(err, services.ErrMatchNotLive),
		errors.Is(err, services.ErrMatchStateInvalid),
		errors.Is(err, services.ErrMatchNotScheduled),
		errors.Is(err, services.ErrMatchInvalidTransition),
		errors.Is(err, services.ErrTournamentNotPlanning),
		errors.Is(err, services.ErrTournamentCompleted),
		errors.Is(err, services.ErrTournamentInvalidTransition),
		errors.Is(err, services.ErrRegistrationClosed),
		errors.Is(err, services.ErrNothingToConfirm),
		errors.Is(err, services.ErrParticipantAlreadyWithdrawn):
		conflictResponse(w, r, err.Error())

	// Scoring rejections
	case errors.Is(err, services.ErrPointsOutOfRange),
		errors.Is(err, services.ErrScoreBust),
		errors.Is(err, services.ErrMustFinishOnDouble):
		unprocessableResponse(w, r, err.Error())

	// Validation
	case errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrTournamentNameRequired),
		errors.Is(err, services.ErrTournamentStartInPast),
		errors.Is(err, services.ErrTournamentInvalidCapacity),
		errors.Is(err, services.ErrGroupTournamentMismatch),
		errors.Is(err, services.ErrLogoUploadsDisabled):
		badRequestResponse(w, r, err)

	// Authentication
	case errors.Is(err, services.ErrAuthInvalidCredentials),
		errors.Is(err, services.ErrAuthInvalidRefresh),
		errors.Is(err, services.ErrAuthUserInactive):
		unauthorizedResponse(w, r, err.Error())

	// Authorization
	case errors.Is(err, services.ErrForbiddenOperation),
		errors.Is(err, services.ErrAdminOnly),
		errors.Is(err, services.ErrNotMatchParticipant),
		errors.Is(err, services.ErrNotTournamentPlayer):
		forbiddenResponse(w, r, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}
