package domain

import (
	"strings"
	"time"
)

// MaxNameLength bounds display names; longer names are truncated.
const MaxNameLength = 24

// ConnectionStatus represents a player's connection state
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
)

// Player represents one connected participant. IsReady is a single
// overloaded "ready for the next phase transition" flag; what it means
// depends on the current phase (lobby-ready, answers-submitted,
// voting-done, next-round-ready). It is reset at the start of every
// phase.
type Player struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	IsHost   bool             `json:"isHost"`
	IsReady  bool             `json:"isReady"`
	Score    int              `json:"score"`
	Status   ConnectionStatus `json:"status"`
	JoinedAt time.Time        `json:"joinedAt"`
}

// NewPlayer creates a new player with the given ID and display name.
func NewPlayer(id, name string) *Player {
	return &Player{
		ID:       id,
		Name:     CleanName(name),
		Status:   StatusConnected,
		JoinedAt: time.Now(),
	}
}

// CleanName trims and length-bounds a display name.
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	if len(name) > MaxNameLength {
		name = name[:MaxNameLength]
	}
	return name
}

// SetName updates the display name, keeping it length-bounded.
func (p *Player) SetName(name string) error {
	cleaned := CleanName(name)
	if cleaned == "" {
		return ErrEmptyName
	}
	p.Name = cleaned
	return nil
}

// IsConnected returns true if the player is currently connected
func (p *Player) IsConnected() bool {
	return p.Status == StatusConnected
}

// Disconnect marks the player as disconnected
func (p *Player) Disconnect() {
	p.Status = StatusDisconnected
}

// Reconnect marks the player as connected
func (p *Player) Reconnect() {
	p.Status = StatusConnected
}
