// Package client implements the peer side of the protocol: it sends
// intents to the host and reconciles host-pushed snapshots into a local
// mirror of the shared state store. The host always wins on conflict;
// the only client-side writes are a short-lived optimistic echo of the
// player's own ready flag and name.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stopgame/internal/domain"
	"stopgame/internal/localdata"
	"stopgame/internal/protocol"
	"stopgame/internal/state"
)

const (
	// maxConnectAttempts bounds automatic retries; after exhausting them
	// the caller gets a terminal error instead of an endless retry loop.
	maxConnectAttempts = 5

	connectRetryDelay = 2 * time.Second

	writeWait = 10 * time.Second
)

// EventKind classifies reconciler notifications for the UI layer.
type EventKind string

const (
	EventError    EventKind = "ERROR"
	EventKicked   EventKind = "KICKED"
	EventHostLost EventKind = "HOST_LOST"
)

// Event is a transient user-facing notification; never modal, the user
// can always retry the triggering action.
type Event struct {
	Kind    EventKind
	Message string
}

// Reconciler connects to a host session and maintains the local state
// mirror.
type Reconciler struct {
	serverURL string
	roomCode  string
	playerID  string

	store   *state.Store
	machine *domain.Machine
	logger  *slog.Logger
	tally   *localdata.Store

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]any
	closed  bool

	events chan Event
}

func mirrorDefaults() map[string]any {
	return map[string]any{
		"phase":       string(domain.PhaseHome),
		"timer":       map[string]any{"remaining": 0},
		"localPlayer": map[string]any{},
	}
}

// New creates a reconciler for one room. The peer id is generated here
// and reused across reconnects, so the host treats a reconnection as a
// rejoin of the same player.
func New(serverURL, roomCode string, logger *slog.Logger) *Reconciler {
	store := state.New(mirrorDefaults)
	return &Reconciler{
		serverURL: serverURL,
		roomCode:  roomCode,
		playerID:  uuid.New().String(),
		store:     store,
		machine:   domain.NewMachine(store, logger),
		logger:    logger,
		pending:   make(map[string]any),
		events:    make(chan Event, 8),
	}
}

// SetTally attaches the best-effort local score tally, written at game
// over and consulted for the last-used display name.
func (r *Reconciler) SetTally(tally *localdata.Store) {
	r.tally = tally
}

// Store exposes the local state mirror for the UI to observe.
func (r *Reconciler) Store() *state.Store {
	return r.store
}

// Events delivers transient notifications (errors, kick, host loss).
func (r *Reconciler) Events() <-chan Event {
	return r.events
}

// PlayerID returns this peer's identifier.
func (r *Reconciler) PlayerID() string {
	return r.playerID
}

// Connect dials the host with a bounded number of retries at a fixed
// delay. After the attempts are exhausted it returns a terminal error.
func (r *Reconciler) Connect(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, r.dialURL(), nil)
		if err == nil {
			r.mu.Lock()
			r.conn = conn
			r.mu.Unlock()
			go r.readLoop(conn)
			return nil
		}

		lastErr = err
		r.logger.Warn("connect attempt failed", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectRetryDelay):
		}
	}
	return fmt.Errorf("connect: max attempts (%d) reached: %w", maxConnectAttempts, lastErr)
}

func (r *Reconciler) dialURL() string {
	return fmt.Sprintf("%s/ws?roomCode=%s&playerId=%s",
		r.serverURL, url.QueryEscape(r.roomCode), url.QueryEscape(r.playerID))
}

// Close tears down the connection and stops event delivery.
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if r.conn != nil {
		r.conn.Close()
	}
}

// send writes one intent, fire-and-forget. A transport failure is
// returned to the caller without tearing anything down; the read loop
// owns connection-loss handling.
func (r *Reconciler) send(msg *protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed || r.conn == nil {
		return fmt.Errorf("not connected")
	}

	r.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return r.conn.WriteJSON(msg)
}

// Join asks the host to admit this peer under the given name.
func (r *Reconciler) Join(name string) error {
	r.setOptimistic("localPlayer.name", domain.CleanName(name))
	if r.tally != nil {
		r.tally.SaveName(name)
	}
	return r.send(protocol.NewMessage(protocol.MsgPlayerJoin, &protocol.JoinPayload{Name: name}))
}

// SetReady toggles this peer's ready flag. The local mirror is updated
// immediately so the UI responds before host confirmation; the next
// snapshot overwrites the echo either way.
func (r *Reconciler) SetReady(isReady bool) error {
	r.setOptimistic("localPlayer.isReady", isReady)
	return r.send(protocol.NewMessage(protocol.MsgPlayerReady, &protocol.ReadyPayload{IsReady: isReady}))
}

// UpdateName changes this peer's display name, with local echo.
func (r *Reconciler) UpdateName(name string) error {
	r.setOptimistic("localPlayer.name", domain.CleanName(name))
	return r.send(protocol.NewMessage(protocol.MsgPlayerUpdate, &protocol.UpdatePayload{Name: name}))
}

// SubmitAnswers sends this round's answers; submitting doubles as the
// answering-phase ready signal.
func (r *Reconciler) SubmitAnswers(answers map[int]string) error {
	r.setOptimistic("localPlayer.isReady", true)
	return r.send(protocol.NewMessage(protocol.MsgAnswersSubmit, &protocol.AnswersPayload{Answers: answers}))
}

// Vote casts, switches, or clears a vote on one answer.
func (r *Reconciler) Vote(categoryIndex int, answer string, vote domain.VoteType) error {
	return r.send(protocol.NewMessage(protocol.MsgVote, &protocol.VotePayload{
		CategoryIndex: categoryIndex,
		Answer:        answer,
		VoteType:      vote,
	}))
}

// VotingDone signals this peer finished reviewing all categories.
func (r *Reconciler) VotingDone() error {
	r.setOptimistic("localPlayer.isReady", true)
	return r.send(protocol.NewMessage(protocol.MsgVotingDone, nil))
}

// NextRound readies up for the next round, or (from the host player
// during game over) requests a rematch.
func (r *Reconciler) NextRound() error {
	r.setOptimistic("localPlayer.isReady", true)
	return r.send(protocol.NewMessage(protocol.MsgNextRound, nil))
}

// UpdateSettings sends a settings write; the host clamps and rebroadcasts.
func (r *Reconciler) UpdateSettings(settings domain.Settings) error {
	return r.send(protocol.NewMessage(protocol.MsgSettingsUpdate, settings))
}

// KickPlayer asks the host to remove a peer (host player only).
func (r *Reconciler) KickPlayer(playerID, reason string) error {
	return r.send(protocol.NewMessage(protocol.MsgKickPlayer, &protocol.KickPlayerPayload{
		PlayerID: playerID,
		Reason:   reason,
	}))
}

// setOptimistic records a pending local echo and applies it to the
// mirror. The pending set is cleared whenever a confirmed snapshot
// arrives, so the echo can never diverge permanently.
func (r *Reconciler) setOptimistic(path string, value any) {
	r.mu.Lock()
	r.pending[path] = value
	r.mu.Unlock()
	r.store.Set(path, value)
}

// readLoop applies host messages until the connection drops. The server
// batches queued messages into one frame separated by newlines.
func (r *Reconciler) readLoop(conn *websocket.Conn) {
	defer r.handleConnectionLost()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		for _, raw := range bytes.Split(data, []byte{'\n'}) {
			if len(raw) == 0 {
				continue
			}
			var msg protocol.Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				r.logger.Debug("malformed host message dropped", "error", err)
				continue
			}
			r.dispatch(&msg)
		}
	}
}

func (r *Reconciler) dispatch(msg *protocol.Message) {
	switch msg.Type {
	case protocol.MsgGameState:
		var snap domain.Snapshot
		if err := msg.Decode(&snap); err != nil {
			r.logger.Debug("bad snapshot dropped", "error", err)
			return
		}
		r.applyGameState(&snap)

	case protocol.MsgSettingsUpdate:
		var settings domain.Settings
		if err := msg.Decode(&settings); err == nil {
			r.store.Set("settings", settings)
		}

	case protocol.MsgRoundStart:
		var payload protocol.RoundStartPayload
		if err := msg.Decode(&payload); err == nil {
			r.store.Update(map[string]any{
				"currentRound":    payload.Round,
				"currentLetter":   payload.Letter,
				"categories":      payload.Categories,
				"timer.remaining": payload.TimerSeconds,
			})
		}

	case protocol.MsgTimerSync:
		var payload protocol.TimerSyncPayload
		if err := msg.Decode(&payload); err == nil {
			r.store.Set("timer.remaining", payload.Remaining)
		}

	case protocol.MsgAllAnswers:
		var payload protocol.AllAnswersPayload
		if err := msg.Decode(&payload); err == nil {
			r.store.Set("answers", payload.Answers)
		}

	case protocol.MsgVoteUpdate:
		var payload protocol.VoteUpdatePayload
		if err := msg.Decode(&payload); err == nil {
			r.store.Set("votes", payload.Votes)
		}

	case protocol.MsgRoundResults:
		var payload protocol.RoundResultsPayload
		if err := msg.Decode(&payload); err == nil {
			r.store.Update(map[string]any{
				"roundResults": payload.Results,
				"scores":       payload.Scores,
			})
		}

	case protocol.MsgGameOver:
		var payload protocol.GameOverPayload
		if err := msg.Decode(&payload); err == nil {
			r.store.Update(map[string]any{
				"scores":      payload.Scores,
				"leaderboard": payload.Players,
				"winners":     payload.Winners,
			})
			if r.tally != nil {
				r.tally.RecordScores(payload.Players)
			}
		}

	case protocol.MsgPlayerLeave:
		// Roster changes arrive in the accompanying snapshot.

	case protocol.MsgError:
		var payload protocol.ErrorPayload
		if err := msg.Decode(&payload); err == nil {
			r.emit(Event{Kind: EventError, Message: payload.Message})
		}

	case protocol.MsgKick:
		var payload protocol.KickPayload
		msg.Decode(&payload)
		r.emit(Event{Kind: EventKicked, Message: payload.Reason})
		r.teardown()

	default:
		r.logger.Debug("unknown host message dropped", "type", msg.Type)
	}
}

// applyGameState writes every field the snapshot provides into the
// mirror; omitted fields stay untouched. The confirmed state overwrites
// any pending optimistic echo.
func (r *Reconciler) applyGameState(snap *domain.Snapshot) {
	r.mu.Lock()
	r.pending = make(map[string]any)
	r.mu.Unlock()

	if snap.Phase != r.machine.Current() {
		if !r.machine.Transition(snap.Phase) {
			// Mid-game join or missed broadcast; accept the host's
			// phase via the initialization path.
			r.machine.ForcePhase(snap.Phase)
		}
	}

	r.store.Update(map[string]any{
		"hostId":        snap.HostID,
		"players":       snap.Players,
		"settings":      snap.Settings,
		"currentRound":  snap.CurrentRound,
		"currentLetter": snap.Letter,
		"usedLetters":   snap.UsedLetters,
		"categories":    snap.Categories,
		"scores":        snap.Scores,
		"roundResults":  snap.RoundResults,
	})

	for _, p := range snap.Players {
		if p.ID == r.playerID {
			r.store.Set("localPlayer", map[string]any{
				"id":      p.ID,
				"name":    p.Name,
				"isHost":  p.IsHost,
				"isReady": p.IsReady,
				"score":   p.Score,
			})
			break
		}
	}
}

// handleConnectionLost treats a dropped host link as fatal for the
// session: local session state is discarded and the phase is forced
// back to HOME through the unvalidated path, since the host is gone and
// consensus no longer applies.
func (r *Reconciler) handleConnectionLost() {
	r.mu.Lock()
	wasClosed := r.closed
	r.closed = true
	if r.conn != nil {
		r.conn.Close()
		r.conn = nil
	}
	r.mu.Unlock()

	if wasClosed {
		return
	}

	r.logger.Warn("host connection lost", "roomCode", r.roomCode)
	r.machine.ForcePhase(domain.PhaseHome)
	r.store.Reset()
	r.emit(Event{Kind: EventHostLost, Message: "connection to host lost"})
}

func (r *Reconciler) teardown() {
	r.Close()
	r.machine.ForcePhase(domain.PhaseHome)
	r.store.Reset()
}

// emit delivers an event without ever blocking the read loop.
func (r *Reconciler) emit(event Event) {
	select {
	case r.events <- event:
	default:
		r.logger.Debug("event dropped, buffer full", "kind", event.Kind)
	}
}
