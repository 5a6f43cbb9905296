package domain

import "errors"

// Domain errors
var (
	ErrGameNotFound       = errors.New("game not found")
	ErrGameFull           = errors.New("game is full")
	ErrGameAlreadyStarted = errors.New("game already started")
	ErrNotEnoughPlayers   = errors.New("not enough players to start")
	ErrInvalidPhase       = errors.New("invalid action for current phase")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrNotHost            = errors.New("only host can perform this action")
	ErrInvalidCategory    = errors.New("category index out of range")
	ErrEmptyName          = errors.New("name cannot be empty")
	ErrInvalidVoteType    = errors.New("invalid vote type")
)
