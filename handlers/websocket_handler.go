package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dartmaster/dartmaster-api/live"
	"github.com/dartmaster/dartmaster-api/services"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks are handled by the CORS layer; subscriptions are
	// read-only so a permissive upgrade is acceptable here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub          *live.Hub
	matchService services.MatchService
	logger       *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, matchService services.MatchService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:          hub,
		matchService: matchService,
		logger:       logger,
	}
}

// ServeMatch subscribes the caller to live score updates for one match.
// Clients connect to /ws/matches/{matchID}.
func (h *WebSocketHandler) ServeMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")
	if matchID == "" {
		badRequestResponse(w, r, errors.New("missing matchID"))
		return
	}

	id, err := idParam(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if _, err := h.matchService.GetByID(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error to the client.
		h.logger.Warn("websocket upgrade failed",
			slog.String("match_id", matchID), slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, matchID)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
