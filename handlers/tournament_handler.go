package handlers

import (
	"errors"
	"net/http"

	"github.com/dartmaster/dartmaster-api/middleware"
	"github.com/dartmaster/dartmaster-api/models"
	"github.com/dartmaster/dartmaster-api/services"
)

const maxLogoBytes = 5 << 20 // 5MB

type TournamentHandler struct {
	tournamentService services.TournamentService
	statisticsService services.StatisticsService
}

func NewTournamentHandler(
	tournamentService services.TournamentService,
	statisticsService services.StatisticsService,
) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: tournamentService,
		statisticsService: statisticsService,
	}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournamentService.List(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	var input services.UpdateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Update(r.Context(), id, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	var input struct {
		Status models.TournamentStatus `json:"status"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.ChangeStatus(r.Context(), id, userID, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	if err := h.tournamentService.Delete(r.Context(), id, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) Register(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	participant, err := h.tournamentService.Register(r.Context(), id, userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"participant": participant}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	if err := h.tournamentService.Withdraw(r.Context(), id, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) ListParticipants(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	participants, err := h.tournamentService.ListParticipants(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	var input services.CreateGroupInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.GroupNumber < 1 {
		badRequestResponse(w, r, errors.New("group_number must be positive"))
		return
	}

	group, err := h.tournamentService.CreateGroup(r.Context(), id, userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"group": group}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	groups, err := h.tournamentService.ListGroups(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"groups": groups}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}
	groupID, err := idParam(r, "groupID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteGroup(r.Context(), id, groupID, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) AssignGroup(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}
	playerID, err := idParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		GroupID *int `json:"group_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.AssignGroup(r.Context(), id, playerID, userID, input.GroupID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	if err := r.ParseMultipartForm(maxLogoBytes); err != nil {
		badRequestResponse(w, r, errors.New("failed to parse multipart form"))
		return
	}

	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, errors.New("logo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	switch contentType {
	case "image/png", "image/jpeg", "image/webp":
	default:
		badRequestResponse(w, r, errors.New("logo must be a png, jpeg or webp image"))
		return
	}

	tournament, err := h.tournamentService.UploadLogo(r.Context(), id, userID, contentType, file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) RemoveLogo(w http.ResponseWriter, r *http.Request) {
	id, userID, err := h.pathAndUser(w, r)
	if err != nil {
		return
	}

	if err := h.tournamentService.RemoveLogo(r.Context(), id, userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) ListStatistics(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.statisticsService.ListByTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"statistics": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) GetPlayerStatistics(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	playerID, err := idParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	stats, err := h.statisticsService.GetForPlayer(r.Context(), id, playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"statistics": stats}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// pathAndUser extracts the tournament ID and the authenticated caller,
// writing the error response itself when either is missing.
func (h *TournamentHandler) pathAndUser(w http.ResponseWriter, r *http.Request) (int, int, error) {
	id, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return 0, 0, err
	}
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		err := errors.New("authentication required")
		unauthorizedResponse(w, r, err.Error())
		return 0, 0, err
	}
	return id, userID, nil
}
