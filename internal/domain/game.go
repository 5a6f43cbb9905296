package domain

import (
	"sort"
	"strings"
	"time"
)

const (
	// MaxPlayers is the fixed connection cap per session.
	MaxPlayers = 8

	// MinPlayersToStart gates every ready-driven phase advance.
	MinPlayersToStart = 2
)

// Game is the root session aggregate. The host authority is its single
// writer; clients hold a read-mostly mirror built from snapshots.
type Game struct {
	ID           string
	Players      []*Player // insertion order, display only
	Settings     Settings
	CurrentRound int
	UsedLetters  map[string]bool
	Letter       string
	Categories   []string

	// Answers maps playerID -> categoryIndex -> raw answer text.
	// Absent entries mean "did not answer".
	Answers map[string]map[int]string

	Votes        RoundVotes
	Scores       map[string]int
	RoundResults *RoundResults

	CreatedAt time.Time
}

// NewGame creates an empty game session with default settings.
func NewGame(id string) *Game {
	return &Game{
		ID:          id,
		Players:     make([]*Player, 0, MaxPlayers),
		Settings:    DefaultSettings(),
		UsedLetters: make(map[string]bool),
		Answers:     make(map[string]map[int]string),
		Votes:       make(RoundVotes),
		Scores:      make(map[string]int),
		CreatedAt:   time.Now(),
	}
}

// AddPlayer adds a new player, or treats a known id as a rejoin:
// the existing entry gets the new name and a reset ready flag instead
// of a duplicate. The first player becomes the host. The caller gates
// on phase; this only enforces the capacity invariant.
func (g *Game) AddPlayer(playerID, name string) (*Player, error) {
	if existing, err := g.GetPlayer(playerID); err == nil {
		if err := existing.SetName(name); err != nil {
			return nil, err
		}
		existing.IsReady = false
		existing.Reconnect()
		return existing, nil
	}

	if len(g.Players) >= MaxPlayers {
		return nil, ErrGameFull
	}

	player := NewPlayer(playerID, name)
	if player.Name == "" {
		return nil, ErrEmptyName
	}
	if len(g.Players) == 0 {
		player.IsHost = true
	}
	g.Players = append(g.Players, player)
	g.Scores[playerID] = 0

	return player, nil
}

// RemovePlayer removes a player from the roster. If the host leaves the
// session is over; promoting a replacement is the caller's decision to
// not make (host loss is terminal).
func (g *Game) RemovePlayer(playerID string) error {
	for i, p := range g.Players {
		if p.ID == playerID {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return nil
		}
	}
	return ErrPlayerNotFound
}

// GetPlayer returns a player by ID
func (g *Game) GetPlayer(playerID string) (*Player, error) {
	for _, p := range g.Players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, ErrPlayerNotFound
}

// Host returns the host player, or nil before anyone joined.
func (g *Game) Host() *Player {
	for _, p := range g.Players {
		if p.IsHost {
			return p
		}
	}
	return nil
}

// IsHost checks if the given player is the host
func (g *Game) IsHost(playerID string) bool {
	host := g.Host()
	return host != nil && host.ID == playerID
}

// AllReady reports whether every connected player is ready and the
// player count is at least MinPlayersToStart. Both conditions gate
// every ready-driven phase advance.
func (g *Game) AllReady() bool {
	if len(g.Players) < MinPlayersToStart {
		return false
	}
	for _, p := range g.Players {
		if p.IsConnected() && !p.IsReady {
			return false
		}
	}
	return true
}

// ResetReady clears every ready flag; called at the start of each phase.
func (g *Game) ResetReady() {
	for _, p := range g.Players {
		p.IsReady = false
	}
}

// SetAnswers stores a player's submitted answers for the round,
// discarding entries outside the category range. Answer text is trimmed
// here, at the ingestion boundary, so the text revealed in broadcasts,
// the vote keys, and the scoring lookup are all the same string.
func (g *Game) SetAnswers(playerID string, answers map[int]string) error {
	if _, err := g.GetPlayer(playerID); err != nil {
		return err
	}

	stored := make(map[int]string, len(answers))
	for idx, text := range answers {
		if idx < 0 || idx >= len(g.Categories) {
			continue
		}
		stored[idx] = strings.TrimSpace(text)
	}
	g.Answers[playerID] = stored
	return nil
}

// ApplyVote records a vote on (categoryIndex, answer) for voterID.
func (g *Game) ApplyVote(categoryIndex int, answer, voterID string, vote VoteType) error {
	if categoryIndex < 0 || categoryIndex >= len(g.Categories) {
		return ErrInvalidCategory
	}
	if !vote.IsValid() {
		return ErrInvalidVoteType
	}
	if _, err := g.GetPlayer(voterID); err != nil {
		return err
	}

	g.Votes.Apply(categoryIndex, answer, voterID, vote)
	return nil
}

// StartRound advances the round counter, records the letter as used,
// installs the category set, and clears all per-round state including
// every ready flag.
func (g *Game) StartRound(letter string, categories []string) {
	g.CurrentRound++
	g.Letter = letter
	g.UsedLetters[letter] = true
	g.Categories = categories
	g.Answers = make(map[string]map[int]string)
	g.Votes = make(RoundVotes)
	g.RoundResults = nil
	g.ResetReady()
}

// IsFinalRound reports whether the current round is the last one.
func (g *Game) IsFinalRound() bool {
	return g.CurrentRound >= g.Settings.RoundCount
}

// AddRoundScores folds a round's per-player points into the cumulative
// scores and keeps each player's display mirror in sync. Scoring never
// subtracts.
func (g *Game) AddRoundScores(results *RoundResults) {
	for playerID, points := range results.PlayerScores {
		g.Scores[playerID] += points
	}
	for _, p := range g.Players {
		p.Score = g.Scores[p.ID]
	}
	g.RoundResults = results
}

// ResetForNewGame clears all progress for a play-again while keeping
// the roster.
func (g *Game) ResetForNewGame() {
	g.CurrentRound = 0
	g.UsedLetters = make(map[string]bool)
	g.Letter = ""
	g.Categories = nil
	g.Answers = make(map[string]map[int]string)
	g.Votes = make(RoundVotes)
	g.RoundResults = nil
	for _, p := range g.Players {
		p.Score = 0
		p.IsReady = false
	}
	g.Scores = make(map[string]int)
	for _, p := range g.Players {
		g.Scores[p.ID] = 0
	}
}

// UsedLetterList returns the used letters sorted, for snapshots.
func (g *Game) UsedLetterList() []string {
	letters := make([]string, 0, len(g.UsedLetters))
	for letter := range g.UsedLetters {
		letters = append(letters, letter)
	}
	sort.Strings(letters)
	return letters
}

// Snapshot builds the full game-state payload broadcast to peers. Every
// field a broadcast should take effect on must be present; clients apply
// provided fields and leave omitted ones untouched.
func (g *Game) Snapshot(phase Phase) *Snapshot {
	hostID := ""
	if host := g.Host(); host != nil {
		hostID = host.ID
	}

	return &Snapshot{
		Phase:        phase,
		HostID:       hostID,
		Players:      g.Players,
		Settings:     g.Settings,
		CurrentRound: g.CurrentRound,
		Letter:       g.Letter,
		UsedLetters:  g.UsedLetterList(),
		Categories:   g.Categories,
		Scores:       g.Scores,
		RoundResults: g.RoundResults,
	}
}

// Snapshot is the materially complete game state sent in GAME_STATE
// broadcasts.
type Snapshot struct {
	Phase        Phase          `json:"phase"`
	HostID       string         `json:"hostId"`
	Players      []*Player      `json:"players"`
	Settings     Settings       `json:"settings"`
	CurrentRound int            `json:"currentRound"`
	Letter       string         `json:"currentLetter"`
	UsedLetters  []string       `json:"usedLetters"`
	Categories   []string       `json:"categories"`
	Scores       map[string]int `json:"scores"`
	RoundResults *RoundResults  `json:"roundResults,omitempty"`
}
