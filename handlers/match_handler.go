package handlers

import (
	"errors"
	"net/http"

	"github.com/dartmaster/dartmaster-api/middleware"
	"github.com/dartmaster/dartmaster-api/services"
)

type MatchHandler struct {
	matchService        services.MatchService
	confirmationService services.ConfirmationService
}

func NewMatchHandler(
	matchService services.MatchService,
	confirmationService services.ConfirmationService,
) *MatchHandler {
	return &MatchHandler{
		matchService:        matchService,
		confirmationService: confirmationService,
	}
}

func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateMatchInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.Create(r.Context(), tournamentID, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListByTournament(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetByID(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
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

	var input struct {
		PlayerID int `json:"player_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.PlayerID < 1 {
		badRequestResponse(w, r, errors.New("player_id is required"))
		return
	}

	participant, err := h.matchService.AddPlayer(r.Context(), matchID, input.PlayerID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Start(w http.ResponseWriter, r *http.Request) {
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

	match, err := h.matchService.Start(r.Context(), matchID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.matchService.Delete(r.Context(), matchID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MatchHandler) Confirm(w http.ResponseWriter, r *http.Request) {
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

	status, err := h.confirmationService.Confirm(r.Context(), matchID, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"confirmation": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListConfirmations(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	confirmations, err := h.confirmationService.ListByMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"confirmations": confirmations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
