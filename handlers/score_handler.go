package handlers

import (
	"net/http"

	"github.com/dartmaster/dartmaster-api/middleware"
	"github.com/dartmaster/dartmaster-api/services"
)

type ScoreHandler struct {
	scoreService services.ScoreService
}

func NewScoreHandler(scoreService services.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService}
}

// RecordThrow handles POST /matches/{matchID}/throws. The thrower is always
// the authenticated caller.
func (h *ScoreHandler) RecordThrow(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.RecordThrowInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	result, err := h.scoreService.RecordThrow(r.Context(), matchID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"message": result.Message,
		"throw":   result.Throw,
	}
	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ScoreHandler) GetScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	score, err := h.scoreService.GetMatchScore(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"score": score}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *ScoreHandler) ListThrows(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	throws, err := h.scoreService.ListThrows(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"throws": throws}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UndoLastThrow handles DELETE /matches/{matchID}/throws/latest for the
// authenticated caller's own throws.
func (h *ScoreHandler) UndoLastThrow(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.scoreService.UndoLastThrow(r.Context(), matchID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
