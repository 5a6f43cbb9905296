package domain

import (
	"log/slog"

	"stopgame/internal/state"
)

// Phase represents the current stage of a game session
type Phase string

const (
	PhaseHome      Phase = "HOME"      // Not in a session
	PhaseLobby     Phase = "LOBBY"     // Waiting for players to ready up
	PhaseAnswering Phase = "ANSWERING" // Players filling in answers for the round letter
	PhaseVoting    Phase = "VOTING"    // Players voting on revealed answers
	PhaseResults   Phase = "RESULTS"   // Round breakdown and scores
	PhaseGameOver  Phase = "GAME_OVER" // Final scores
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// transitions is the exhaustive set of legal phase edges.
var transitions = map[Phase][]Phase{
	PhaseHome:      {PhaseLobby},
	PhaseLobby:     {PhaseAnswering, PhaseHome},
	PhaseAnswering: {PhaseVoting},
	PhaseVoting:    {PhaseResults},
	PhaseResults:   {PhaseAnswering, PhaseGameOver},
	PhaseGameOver:  {PhaseLobby, PhaseHome},
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, phase := range transitions[p] {
		if phase == target {
			return true
		}
	}
	return false
}

// TransitionFunc receives the phase on the other side of the edge: the
// prior phase for enter callbacks, the new phase for exit callbacks.
type TransitionFunc func(other Phase)

type phaseEdge struct {
	from Phase
	to   Phase
}

// Machine gates all phase changes through the edge table and publishes
// the active phase into the shared state store.
type Machine struct {
	store   *state.Store
	logger  *slog.Logger
	current Phase

	onEdge  map[phaseEdge][]func()
	onEnter map[Phase][]TransitionFunc
	onExit  map[Phase][]TransitionFunc
}

// NewMachine creates a phase machine starting at HOME.
func NewMachine(store *state.Store, logger *slog.Logger) *Machine {
	m := &Machine{
		store:   store,
		logger:  logger,
		current: PhaseHome,
		onEdge:  make(map[phaseEdge][]func()),
		onEnter: make(map[Phase][]TransitionFunc),
		onExit:  make(map[Phase][]TransitionFunc),
	}
	store.Set("phase", string(PhaseHome))
	return m
}

// Current returns the active phase.
func (m *Machine) Current() Phase {
	return m.current
}

// Transition moves to target if the edge exists in the transition table.
// On success it writes the new phase to the store, then fires exact-edge
// callbacks, enter callbacks (with the prior phase), and exit callbacks
// (with the target phase), in that order. On failure it returns false
// and leaves state unchanged.
func (m *Machine) Transition(target Phase) bool {
	from := m.current
	if !from.CanTransitionTo(target) {
		m.logger.Warn("rejected phase transition", "from", from, "to", target)
		return false
	}

	m.apply(from, target)
	return true
}

// ForcePhase bypasses edge validation. It exists for session bootstrap
// and terminal abort paths (host loss, explicit leave) only, never for
// regular game flow.
func (m *Machine) ForcePhase(target Phase) {
	from := m.current
	if from == target {
		return
	}
	m.logger.Debug("forcing phase", "from", from, "to", target)
	m.apply(from, target)
}

func (m *Machine) apply(from, target Phase) {
	m.current = target
	m.store.Set("phase", string(target))

	for _, fn := range m.onEdge[phaseEdge{from: from, to: target}] {
		fn()
	}
	for _, fn := range m.onEnter[target] {
		fn(from)
	}
	for _, fn := range m.onExit[from] {
		fn(target)
	}
}

// OnEdge registers a callback for one specific (from, to) edge.
func (m *Machine) OnEdge(from, to Phase, fn func()) {
	key := phaseEdge{from: from, to: to}
	m.onEdge[key] = append(m.onEdge[key], fn)
}

// OnEnter registers a callback fired whenever phase becomes p.
func (m *Machine) OnEnter(p Phase, fn TransitionFunc) {
	m.onEnter[p] = append(m.onEnter[p], fn)
}

// OnExit registers a callback fired whenever phase leaves p.
func (m *Machine) OnExit(p Phase, fn TransitionFunc) {
	m.onExit[p] = append(m.onExit[p], fn)
}
