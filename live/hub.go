package live

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message types pushed to match rooms.
const (
	MessageScoreUpdated  = "SCORE_UPDATED"
	MessageMatchFinished = "MATCH_FINISHED"
)

// Message is the envelope for every websocket push.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Hub fans score updates out to websocket clients. Each match gets its own
// room, keyed by the match ID as a string.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	rooms  map[string]map[*Client]bool
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// Run processes client registration. It is meant to run in its own goroutine
// for the lifetime of the process.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("websocket client joined room",
				slog.String("room", client.Room),
				slog.Int("clients", len(h.rooms[client.Room])),
			)
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, registered := clients[client]; registered {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
					h.logger.Debug("websocket client left room",
						slog.String("room", client.Room),
						slog.Int("clients", len(clients)),
					)
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom sends a message to every client in the room. Clients whose
// send buffer is full are skipped rather than blocking the caller.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message",
			slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range clients {
		client.mu.Lock()
		if client.isClosed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.Send <- payload:
		default:
			h.logger.Warn("websocket client send buffer full, dropping message",
				slog.String("room", roomID))
		}
		client.mu.Unlock()
	}
}
