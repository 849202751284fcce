package conquest

import (
	"errors"
	"fmt"
)

// Rejection kinds. A ValidationError wraps exactly one of these so callers
// can branch with errors.Is.
var (
	ErrGameOver           = errors.New("game is over")
	ErrWrongPhase         = errors.New("wrong phase")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrUnknownTerritory   = errors.New("unknown territory")
	ErrNotYourTerritory   = errors.New("not your territory")
	ErrTerritoryOwned     = errors.New("territory already owned")
	ErrNotAdjacent        = errors.New("territories are not adjacent")
	ErrSameTerritory      = errors.New("source and destination are the same territory")
	ErrInvalidCount       = errors.New("invalid army count")
	ErrInsufficientArmies = errors.New("insufficient armies")
	ErrUnplacedArmies     = errors.New("armies left to place")
	ErrSetupIncomplete    = errors.New("setup is not complete")
	ErrUnknownPlayer      = errors.New("unknown player")
)

// ValidationError is an illegal move. The game state is never mutated when
// one is returned.
type ValidationError struct {
	Kind   error
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Reason
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Code is a stable machine-readable name for the rejection kind.
func (e *ValidationError) Code() string {
	return codeOf(e.Kind)
}

func reject(kind error, format string, args ...any) error {
	return &ValidationError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func codeOf(kind error) string {
	switch kind {
	case ErrGameOver:
		return "game_over"
	case ErrWrongPhase:
		return "wrong_phase"
	case ErrNotYourTurn:
		return "not_your_turn"
	case ErrUnknownTerritory:
		return "unknown_territory"
	case ErrNotYourTerritory:
		return "not_your_territory"
	case ErrTerritoryOwned:
		return "territory_owned"
	case ErrNotAdjacent:
		return "not_adjacent"
	case ErrSameTerritory:
		return "same_territory"
	case ErrInvalidCount:
		return "invalid_count"
	case ErrInsufficientArmies:
		return "insufficient_armies"
	case ErrUnplacedArmies:
		return "unplaced_armies"
	case ErrSetupIncomplete:
		return "setup_incomplete"
	case ErrUnknownPlayer:
		return "unknown_player"
	}
	return "invalid_move"
}
