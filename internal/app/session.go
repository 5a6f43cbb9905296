package app

import (
	"log/slog"
	"sync"
	"time"

	"stopgame/internal/domain"
	"stopgame/internal/protocol"
	"stopgame/internal/state"
)

// ClientConnection represents a connected peer link.
type ClientConnection interface {
	Send(msg *protocol.Message) error
	PlayerID() string
	Close() error
}

// GameSession is the host authority for one game: the single writer of
// canonical state and the only component that drives phase transitions.
// Every inbound intent is validated against the current phase, applied,
// and answered with a broadcast so all peers converge on the same state.
type GameSession struct {
	mu      sync.Mutex
	game    *domain.Game
	store   *state.Store
	machine *domain.Machine

	clients   map[string]ClientConnection
	clientsMu sync.RWMutex

	logger   *slog.Logger
	onClosed func()

	countdown *countdown
	closed    bool
	done      chan struct{}
}

func defaultSnapshot() map[string]any {
	return map[string]any{
		"phase": string(domain.PhaseHome),
		"timer": map[string]any{"remaining": 0},
	}
}

// NewGameSession creates a session around a game. onClosed fires once
// when the session terminates, letting the hub drop its entry.
func NewGameSession(game *domain.Game, logger *slog.Logger, onClosed func()) *GameSession {
	store := state.New(defaultSnapshot)
	return &GameSession{
		game:     game,
		store:    store,
		machine:  domain.NewMachine(store, logger),
		clients:  make(map[string]ClientConnection),
		logger:   logger,
		onClosed: onClosed,
		done:     make(chan struct{}),
	}
}

// Store exposes the session's observable state tree; the host's own UI
// subscribes here like any other peer would to its mirror.
func (s *GameSession) Store() *state.Store {
	return s.store
}

// RoomCode returns the shareable session code.
func (s *GameSession) RoomCode() string {
	return s.game.ID
}

// CreatedAt returns when the game was created.
func (s *GameSession) CreatedAt() time.Time {
	return s.game.CreatedAt
}

// PlayerCount returns the number of players on the roster.
func (s *GameSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.game.Players)
}

// Phase returns the current game phase.
func (s *GameSession) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// CanJoin checks whether a new player would be admitted right now.
func (s *GameSession) CanJoin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	phase := s.machine.Current()
	return (phase == domain.PhaseHome || phase == domain.PhaseLobby) &&
		len(s.game.Players) < domain.MaxPlayers
}

// RegisterClient attaches a peer link for a player id.
func (s *GameSession) RegisterClient(playerID string, client ClientConnection) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[playerID] = client
}

// UnregisterClient detaches a peer link.
func (s *GameSession) UnregisterClient(playerID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, playerID)
}

// HandleJoin admits a player, or updates name and resets ready on a
// rejoin with a known id. Joins are rejected with a unicast error when
// the roster is full or a game is in progress.
func (s *GameSession) HandleJoin(client ClientConnection, name string) {
	playerID := client.PlayerID()

	s.mu.Lock()
	phase := s.machine.Current()
	_, knownPlayer := s.playerExists(playerID)

	if phase != domain.PhaseHome && phase != domain.PhaseLobby && !knownPlayer {
		s.mu.Unlock()
		s.sendError(client, protocol.ErrCodeInProgress, "game already in progress")
		return
	}

	player, err := s.game.AddPlayer(playerID, name)
	if err != nil {
		s.mu.Unlock()
		switch err {
		case domain.ErrGameFull:
			s.sendError(client, protocol.ErrCodeGameFull, "game is full")
		default:
			s.sendError(client, protocol.ErrCodeInvalidMessage, err.Error())
		}
		return
	}

	s.RegisterClient(playerID, client)

	if phase == domain.PhaseHome {
		s.machine.Transition(domain.PhaseLobby)
	}

	s.logger.Info("player joined",
		"roomCode", s.game.ID,
		"playerID", playerID,
		"name", player.Name,
		"isHost", player.IsHost,
		"rejoin", knownPlayer,
	)

	s.publishSnapshotLocked()
	s.mu.Unlock()
}

func (s *GameSession) playerExists(playerID string) (*domain.Player, bool) {
	player, err := s.game.GetPlayer(playerID)
	return player, err == nil
}

// HandleDisconnect reacts to a dropped peer link. Losing the host ends
// the session for everyone. A player lost mid-round stays on the roster
// as disconnected so a rejoin keeps their answers and votes; in the
// lobby the entry is removed outright.
func (s *GameSession) HandleDisconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerExists(playerID)
	if !ok {
		return
	}

	if player.IsHost {
		s.logger.Info("host disconnected, ending session", "roomCode", s.game.ID)
		s.terminateLocked("host left the game")
		return
	}

	phase := s.machine.Current()
	if phase == domain.PhaseHome || phase == domain.PhaseLobby || phase == domain.PhaseGameOver {
		s.removePlayerLocked(playerID)
	} else {
		player.Disconnect()
		s.publishSnapshotLocked()
	}

	s.maybeAdvanceLocked()
}

func (s *GameSession) removePlayerLocked(playerID string) {
	if err := s.game.RemovePlayer(playerID); err != nil {
		return
	}
	s.broadcast(protocol.NewMessage(protocol.MsgPlayerLeave, &protocol.LeavePayload{PlayerID: playerID}))
	s.publishSnapshotLocked()
}

// HandleReady toggles the sender's ready flag and advances the phase if
// everyone is ready.
func (s *GameSession) HandleReady(playerID string, isReady bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerExists(playerID)
	if !ok {
		return
	}

	player.IsReady = isReady
	s.publishSnapshotLocked()
	s.maybeAdvanceLocked()
}

// HandleNameUpdate applies a display-name change.
func (s *GameSession) HandleNameUpdate(playerID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	player, ok := s.playerExists(playerID)
	if !ok {
		return
	}

	if err := player.SetName(name); err != nil {
		s.logger.Debug("ignoring name update", "playerID", playerID, "error", err)
		return
	}
	s.publishSnapshotLocked()
}

// HandleSettingsUpdate clamps and stores a settings write. Host player
// only, and only before or between rounds.
func (s *GameSession) HandleSettingsUpdate(playerID string, settings domain.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(playerID) {
		s.logger.Debug("settings update from non-host ignored", "playerID", playerID)
		return
	}

	switch s.machine.Current() {
	case domain.PhaseLobby, domain.PhaseResults, domain.PhaseGameOver:
	default:
		return
	}

	s.game.Settings = settings.Clamped()
	s.store.Set("settings", s.game.Settings)
	s.broadcast(protocol.NewMessage(protocol.MsgSettingsUpdate, s.game.Settings))
}

// HandleAnswers stores a player's submitted answers and marks them
// ready; submitting is the answer-phase form of readying up.
func (s *GameSession) HandleAnswers(playerID string, answers map[int]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Current() != domain.PhaseAnswering {
		s.logger.Debug("answers outside answering phase ignored", "playerID", playerID)
		return
	}

	if err := s.game.SetAnswers(playerID, answers); err != nil {
		s.logger.Debug("ignoring answers", "playerID", playerID, "error", err)
		return
	}

	if player, ok := s.playerExists(playerID); ok {
		player.IsReady = true
	}

	s.publishSnapshotLocked()
	s.maybeAdvanceLocked()
}

// HandleVote applies one vote with last-write-wins semantics and
// broadcasts the resulting vote state.
func (s *GameSession) HandleVote(playerID string, categoryIndex int, answer string, vote domain.VoteType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Current() != domain.PhaseVoting {
		s.logger.Debug("vote outside voting phase ignored", "playerID", playerID)
		return
	}

	if err := s.game.ApplyVote(categoryIndex, answer, playerID, vote); err != nil {
		s.logger.Debug("ignoring vote", "playerID", playerID, "error", err)
		return
	}

	s.store.Set("votes", s.game.Votes)
	s.broadcast(protocol.NewMessage(protocol.MsgVoteUpdate, &protocol.VoteUpdatePayload{Votes: s.game.Votes}))
}

// HandleVotingDone marks the sender finished with voting.
func (s *GameSession) HandleVotingDone(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Current() != domain.PhaseVoting {
		return
	}

	if player, ok := s.playerExists(playerID); ok {
		player.IsReady = true
		s.publishSnapshotLocked()
		s.maybeAdvanceLocked()
	}
}

// HandleNextRound marks the sender ready for the next round during
// RESULTS. During GAME_OVER it is the host's play-again trigger.
func (s *GameSession) HandleNextRound(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.machine.Current() {
	case domain.PhaseResults:
		if player, ok := s.playerExists(playerID); ok {
			player.IsReady = true
			s.publishSnapshotLocked()
			s.maybeAdvanceLocked()
		}
	case domain.PhaseGameOver:
		if !s.game.IsHost(playerID) {
			return
		}
		s.game.ResetForNewGame()
		s.machine.Transition(domain.PhaseLobby)
		s.publishSnapshotLocked()
	}
}

// HandleKickPlayer removes a peer at the host player's request.
func (s *GameSession) HandleKickPlayer(requesterID, targetID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.game.IsHost(requesterID) || requesterID == targetID {
		return
	}
	if _, ok := s.playerExists(targetID); !ok {
		return
	}

	if reason == "" {
		reason = "removed by host"
	}

	s.clientsMu.RLock()
	target := s.clients[targetID]
	s.clientsMu.RUnlock()

	if target != nil {
		if err := target.Send(protocol.NewMessage(protocol.MsgKick, &protocol.KickPayload{Reason: reason})); err != nil {
			s.logger.Debug("kick notice failed", "playerID", targetID, "error", err)
		}
		target.Close()
	}
	s.UnregisterClient(targetID)
	s.removePlayerLocked(targetID)
	s.maybeAdvanceLocked()
}

// maybeAdvanceLocked runs the ready gate: every connected player ready
// and at least two players present. Timer expiry funnels into the same
// per-phase advance paths.
func (s *GameSession) maybeAdvanceLocked() {
	if !s.game.AllReady() {
		return
	}

	switch s.machine.Current() {
	case domain.PhaseLobby:
		s.startGameLocked()
	case domain.PhaseAnswering:
		s.revealAnswersLocked()
	case domain.PhaseVoting:
		s.finishVotingLocked()
	case domain.PhaseResults:
		if s.game.IsFinalRound() {
			s.finishGameLocked()
		} else {
			s.startRoundLocked()
		}
	}
}

func (s *GameSession) startGameLocked() {
	s.game.ResetForNewGame()
	s.startRoundLocked()
}

func (s *GameSession) startRoundLocked() {
	letter := domain.SelectLetter(s.game.UsedLetters)
	categories := domain.PickCategories(s.game.Settings.CategoriesPerRound)
	s.game.StartRound(letter, categories)

	if !s.machine.Transition(domain.PhaseAnswering) {
		return
	}

	s.logger.Info("round started",
		"roomCode", s.game.ID,
		"round", s.game.CurrentRound,
		"letter", letter,
	)

	s.publishSnapshotLocked()
	s.broadcast(protocol.NewMessage(protocol.MsgRoundStart, &protocol.RoundStartPayload{
		Round:        s.game.CurrentRound,
		Letter:       letter,
		Categories:   categories,
		TimerSeconds: s.game.Settings.AnswerTimerSeconds,
	}))

	s.startCountdown(s.game.Settings.AnswerTimerSeconds, s.answerTimeExpired)
}

func (s *GameSession) answerTimeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revealAnswersLocked()
}

func (s *GameSession) revealAnswersLocked() {
	if s.machine.Current() != domain.PhaseAnswering {
		return
	}

	s.stopCountdown()
	s.game.ResetReady()

	if !s.machine.Transition(domain.PhaseVoting) {
		return
	}

	s.publishSnapshotLocked()
	s.broadcast(protocol.NewMessage(protocol.MsgAllAnswers, &protocol.AllAnswersPayload{Answers: s.game.Answers}))

	s.startCountdown(s.game.Settings.VotingTimerSeconds, s.votingTimeExpired)
}

func (s *GameSession) votingTimeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishVotingLocked()
}

func (s *GameSession) finishVotingLocked() {
	if s.machine.Current() != domain.PhaseVoting {
		return
	}

	s.stopCountdown()

	results := domain.CalculateRoundResults(s.game.Answers, s.game.Votes, s.game.Categories, s.game.Letter)
	s.game.AddRoundScores(results)
	s.game.ResetReady()

	if !s.machine.Transition(domain.PhaseResults) {
		return
	}

	s.publishSnapshotLocked()
	s.broadcast(protocol.NewMessage(protocol.MsgRoundResults, &protocol.RoundResultsPayload{
		Results: results,
		Scores:  s.game.Scores,
	}))
}

func (s *GameSession) finishGameLocked() {
	s.game.ResetReady()

	if !s.machine.Transition(domain.PhaseGameOver) {
		return
	}

	s.logger.Info("game over", "roomCode", s.game.ID, "winners", domain.Winners(s.game.Scores))

	s.publishSnapshotLocked()
	s.broadcast(protocol.NewMessage(protocol.MsgGameOver, &protocol.GameOverPayload{
		Scores:  s.game.Scores,
		Players: domain.Leaderboard(s.game.Scores, s.game.Players),
		Winners: domain.Winners(s.game.Scores),
	}))
}

// publishSnapshotLocked mirrors canonical state into the observable
// store and broadcasts the full snapshot. The phase field is written by
// the machine at transition time.
func (s *GameSession) publishSnapshotLocked() {
	snap := s.game.Snapshot(s.machine.Current())

	s.store.Update(map[string]any{
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

	s.broadcast(protocol.NewMessage(protocol.MsgGameState, snap))
}

// broadcast sends to every connected peer sequentially. A failed send
// to one peer never blocks or fails delivery to the others.
func (s *GameSession) broadcast(msg *protocol.Message) {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for playerID, client := range s.clients {
		if err := client.Send(msg); err != nil {
			s.logger.Debug("failed to send to client", "playerID", playerID, "error", err)
		}
	}
}

func (s *GameSession) sendError(client ClientConnection, code, message string) {
	err := client.Send(protocol.NewMessage(protocol.MsgError, &protocol.ErrorPayload{
		Code:    code,
		Message: message,
	}))
	if err != nil {
		s.logger.Debug("failed to send error", "playerID", client.PlayerID(), "error", err)
	}
}

// terminateLocked shuts the session down: peers are kicked, the phase
// is forced back to HOME (terminal abort path), and the hub is told to
// drop the entry.
func (s *GameSession) terminateLocked(reason string) {
	if s.closed {
		return
	}
	s.closed = true

	s.stopCountdown()
	close(s.done)

	s.broadcast(protocol.NewMessage(protocol.MsgKick, &protocol.KickPayload{Reason: reason}))
	s.machine.ForcePhase(domain.PhaseHome)

	s.clientsMu.Lock()
	for _, client := range s.clients {
		client.Close()
	}
	s.clients = make(map[string]ClientConnection)
	s.clientsMu.Unlock()

	if s.onClosed != nil {
		go s.onClosed()
	}
}

// Close shuts down the session from the outside (hub cleanup).
func (s *GameSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminateLocked("session closed")
}
