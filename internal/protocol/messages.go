// Package protocol defines the host/client wire contract: one message
// envelope with a type discriminator and one payload struct per type.
package protocol

import (
	"encoding/json"
	"time"

	"stopgame/internal/domain"
)

// MessageType discriminates wire messages.
type MessageType string

// Client → Host message types
const (
	MsgPlayerJoin    MessageType = "PLAYER_JOIN"
	MsgPlayerUpdate  MessageType = "PLAYER_UPDATE"
	MsgPlayerReady   MessageType = "PLAYER_READY"
	MsgAnswersSubmit MessageType = "ANSWERS_SUBMIT"
	MsgVote          MessageType = "VOTE"
	MsgVotingDone    MessageType = "VOTING_DONE"
	MsgNextRound     MessageType = "NEXT_ROUND"
	MsgKickPlayer    MessageType = "KICK_PLAYER"
)

// Host → Client message types
const (
	MsgPlayerLeave    MessageType = "PLAYER_LEAVE"
	MsgGameState      MessageType = "GAME_STATE"
	MsgSettingsUpdate MessageType = "SETTINGS_UPDATE" // also client → host, host player only
	MsgRoundStart     MessageType = "ROUND_START"
	MsgTimerSync      MessageType = "TIMER_SYNC"
	MsgAllAnswers     MessageType = "ALL_ANSWERS"
	MsgVoteUpdate     MessageType = "VOTE_UPDATE"
	MsgRoundResults   MessageType = "ROUND_RESULTS"
	MsgGameOver       MessageType = "GAME_OVER"
	MsgError          MessageType = "ERROR"
	MsgKick           MessageType = "KICK"
)

// Message is the wire envelope. Payload stays raw until the type switch
// decodes it into the matching struct.
type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// NewMessage wraps a payload into an envelope. A payload that fails to
// marshal is a programming error; the envelope is sent without it.
func NewMessage(msgType MessageType, payload any) *Message {
	msg := &Message{
		Type:      msgType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			msg.Payload = data
		}
	}
	return msg
}

// Decode unmarshals the payload into dst.
func (m *Message) Decode(dst any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(m.Payload, dst)
}

// Client → Host payloads

// JoinPayload carries the joining player's display name.
type JoinPayload struct {
	Name string `json:"name"`
}

// UpdatePayload carries a display-name change.
type UpdatePayload struct {
	Name string `json:"name"`
}

// ReadyPayload toggles the sender's ready flag.
type ReadyPayload struct {
	IsReady bool `json:"isReady"`
}

// AnswersPayload carries a player's answers keyed by category index.
type AnswersPayload struct {
	Answers map[int]string `json:"answers"`
}

// VotePayload casts or clears a vote on one answer.
type VotePayload struct {
	CategoryIndex int             `json:"categoryIndex"`
	Answer        string          `json:"answer"`
	VoteType      domain.VoteType `json:"voteType"`
}

// KickPlayerPayload is the host player's request to remove a peer.
type KickPlayerPayload struct {
	PlayerID string `json:"playerId"`
	Reason   string `json:"reason,omitempty"`
}

// Host → Client payloads

// LeavePayload announces a departed player.
type LeavePayload struct {
	PlayerID string `json:"playerId"`
}

// RoundStartPayload announces a new round.
type RoundStartPayload struct {
	Round        int      `json:"round"`
	Letter       string   `json:"letter"`
	Categories   []string `json:"categories"`
	TimerSeconds int      `json:"timerSeconds"`
}

// TimerSyncPayload is the authoritative remaining countdown value.
type TimerSyncPayload struct {
	Remaining int `json:"remaining"`
}

// AllAnswersPayload reveals every submitted answer for voting.
type AllAnswersPayload struct {
	Answers map[string]map[int]string `json:"answers"`
}

// VoteUpdatePayload broadcasts the full vote state after each vote.
type VoteUpdatePayload struct {
	Votes domain.RoundVotes `json:"votes"`
}

// RoundResultsPayload carries a finished round's breakdown plus the
// cumulative scores.
type RoundResultsPayload struct {
	Results *domain.RoundResults `json:"results"`
	Scores  map[string]int       `json:"scores"`
}

// GameOverPayload carries the final standings.
type GameOverPayload struct {
	Scores  map[string]int            `json:"scores"`
	Players []domain.LeaderboardEntry `json:"players"`
	Winners []string                  `json:"winners"`
}

// ErrorPayload is a unicast rejection.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// KickPayload tells a peer it was removed from the session.
type KickPayload struct {
	Reason string `json:"reason"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeGameNotFound   = "GAME_NOT_FOUND"
	ErrCodeGameFull       = "GAME_FULL"
	ErrCodeInProgress     = "GAME_IN_PROGRESS"
	ErrCodeInvalidAction  = "INVALID_ACTION"
	ErrCodeNotHost        = "NOT_HOST"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
