package service

import "errors"

var (
	ErrLobbyExists      = errors.New("a lobby is already open")
	ErrNoLobby          = errors.New("no lobby is open")
	ErrLobbyFull        = errors.New("lobby is full")
	ErrNameTaken        = errors.New("name is already taken")
	ErrBanned           = errors.New("name is banned from this server")
	ErrEmptyName        = errors.New("name must not be empty")
	ErrNameTooLong      = errors.New("name is too long")
	ErrNotHost          = errors.New("only the host can do that")
	ErrNotEnoughPlayers = errors.New("not enough players to start")
	ErrGameInProgress   = errors.New("a game is in progress")
	ErrNoGame           = errors.New("no game is running")
	ErrGameNotOver      = errors.New("the game is not over")
	ErrNotInLobby       = errors.New("you are not in a lobby")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrAlreadySeated    = errors.New("you are already in a session")
	ErrSelfTarget       = errors.New("you cannot target yourself")
	ErrNotMatch         = errors.New("only available in matched games")
	ErrShuttingDown     = errors.New("server is shutting down")
)

// MaxNameLength bounds display names.
const MaxNameLength = 24
