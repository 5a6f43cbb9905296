package app

import (
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"stopgame/internal/config"
	"stopgame/internal/domain"
)

// RoomCodeChars are characters used for room codes. Visually confusable
// characters (0/O, 1/I) are excluded so codes survive being read aloud
// or retyped from a screen.
const RoomCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GameHub manages all active game sessions
type GameHub struct {
	sessions map[string]*GameSession
	mu       sync.RWMutex
	cfg      config.GameConfig
	logger   *slog.Logger
	done     chan struct{}
}

// NewGameHub creates a new game hub
func NewGameHub(cfg config.GameConfig, logger *slog.Logger) *GameHub {
	hub := &GameHub{
		sessions: make(map[string]*GameSession),
		cfg:      cfg,
		logger:   logger,
		done:     make(chan struct{}),
	}

	go hub.cleanupLoop()

	return hub
}

// CreateGame creates a new game session under a fresh room code.
func (h *GameHub) CreateGame() (*GameSession, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var roomCode string
	for attempts := 0; attempts < 10; attempts++ {
		roomCode = h.generateRoomCode()
		if _, exists := h.sessions[roomCode]; !exists {
			break
		}
	}
	if _, exists := h.sessions[roomCode]; exists {
		return nil, fmt.Errorf("failed to generate unique room code")
	}

	game := domain.NewGame(roomCode)
	session := NewGameSession(game, h.logger, func() {
		h.dropSession(roomCode)
	})
	h.sessions[roomCode] = session

	h.logger.Info("game created", "roomCode", roomCode)

	return session, nil
}

// GetSession returns a game session by room code
func (h *GameHub) GetSession(roomCode string) (*GameSession, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	session, ok := h.sessions[roomCode]
	if !ok {
		return nil, domain.ErrGameNotFound
	}

	return session, nil
}

// dropSession removes a session entry after it terminated itself.
func (h *GameHub) dropSession(roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[roomCode]; ok {
		delete(h.sessions, roomCode)
		h.logger.Info("game removed", "roomCode", roomCode)
	}
}

// SessionCount returns the number of active sessions
func (h *GameHub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// TotalPlayerCount returns the total number of players across all sessions
func (h *GameHub) TotalPlayerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, session := range h.sessions {
		total += session.PlayerCount()
	}
	return total
}

// Close shuts down the hub and all sessions
func (h *GameHub) Close() {
	close(h.done)

	h.mu.Lock()
	sessions := make([]*GameSession, 0, len(h.sessions))
	for _, session := range h.sessions {
		sessions = append(sessions, session)
	}
	h.sessions = make(map[string]*GameSession)
	h.mu.Unlock()

	for _, session := range sessions {
		session.Close()
	}
}

// generateRoomCode generates a random room code
func (h *GameHub) generateRoomCode() string {
	length := h.cfg.RoomCodeLength
	if length <= 0 {
		length = 6
	}

	b := make([]byte, length)
	rand.Read(b)

	code := make([]byte, length)
	for i := range code {
		code[i] = RoomCodeChars[int(b[i])%len(RoomCodeChars)]
	}

	return string(code)
}

// cleanupLoop periodically cleans up stale games
func (h *GameHub) cleanupLoop() {
	interval := h.cfg.CleanupInterval
	if interval <= 0 {
		interval = 10 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.cleanupStaleGames()
		}
	}
}

// cleanupStaleGames removes empty games that outlived the stale timeout.
func (h *GameHub) cleanupStaleGames() {
	h.mu.Lock()

	now := time.Now()
	stale := make([]*GameSession, 0)

	for roomCode, session := range h.sessions {
		if session.PlayerCount() == 0 && now.Sub(session.CreatedAt()) > h.cfg.StaleSessionTimeout {
			stale = append(stale, session)
			delete(h.sessions, roomCode)
			h.logger.Info("stale game cleaned up", "roomCode", roomCode)
		}
	}
	h.mu.Unlock()

	for _, session := range stale {
		session.Close()
	}
}
