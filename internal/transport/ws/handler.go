package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stopgame/internal/app"
)

// Handler handles WebSocket connections
type Handler struct {
	hub      *app.GameHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *app.GameHub, logger *slog.Logger) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins for development
				// In production, you should validate the origin
				return true
			},
		},
		logger: logger,
	}
}

// ServeHTTP handles WebSocket upgrade requests. A peer identifies the
// session by room code; supplying a previously issued player id makes
// this a rejoin, keeping the old roster entry and its round
// contributions.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	roomCode := r.URL.Query().Get("roomCode")
	if roomCode == "" {
		http.Error(w, "roomCode is required", http.StatusBadRequest)
		return
	}

	playerID := r.URL.Query().Get("playerId")
	isRejoin := playerID != ""
	if !isRejoin {
		playerID = uuid.New().String()
	}

	session, err := h.hub.GetSession(roomCode)
	if err != nil {
		http.Error(w, "Game not found", http.StatusNotFound)
		return
	}

	if !isRejoin && !session.CanJoin() {
		http.Error(w, "Cannot join this game", http.StatusForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := NewClient(conn, session, playerID, h.logger)
	session.RegisterClient(playerID, client)

	h.logger.Info("websocket connected",
		"roomCode", roomCode,
		"playerID", playerID,
		"isRejoin", isRejoin,
	)

	client.Run()
}
