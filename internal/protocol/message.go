package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/freeeve/conquest/pkg/conquest"
)

// Kind tags every message on the wire.
type Kind string

// Lobby control.
const (
	KindCreateLobby    Kind = "CREATE_LOBBY"
	KindJoinLobby      Kind = "JOIN_LOBBY"
	KindLeaveLobby     Kind = "LEAVE_LOBBY"
	KindKickPlayer     Kind = "KICK_PLAYER"
	KindBanPlayer      Kind = "BAN_PLAYER"
	KindCloseLobby     Kind = "CLOSE_LOBBY"
	KindFindMatch      Kind = "FIND_MATCH"
	KindSetName        Kind = "SET_NAME"
	KindRematchRequest Kind = "REMATCH_REQUEST"

	KindLobbyCreated  Kind = "LOBBY_CREATED"
	KindLobbyJoined   Kind = "LOBBY_JOINED"
	KindLobbyClosed   Kind = "LOBBY_CLOSED"
	KindPlayerList    Kind = "PLAYER_LIST"
	KindPlayerJoined  Kind = "PLAYER_JOINED"
	KindPlayerLeft    Kind = "PLAYER_LEFT"
	KindPlayerKicked  Kind = "PLAYER_KICKED"
	KindPlayerBanned  Kind = "PLAYER_BANNED"
	KindMatchWaiting  Kind = "MATCH_WAITING"
	KindMatchFound    Kind = "MATCH_FOUND"
)

// Game control.
const (
	KindStartGame         Kind = "START_GAME"
	KindGameStarted       Kind = "GAME_STARTED"
	KindGameStateUpdate   Kind = "GAME_STATE_UPDATE"
	KindTurnStarted       Kind = "TURN_STARTED"
	KindTurnEnded         Kind = "TURN_ENDED"
	KindEndPhase          Kind = "END_PHASE"
	KindEndTurn           Kind = "END_TURN"
	KindPhaseChanged      Kind = "PHASE_CHANGED"
	KindPhaseChangeFailed Kind = "PHASE_CHANGE_FAILED"
	KindGameOver          Kind = "GAME_OVER"
)

// Player actions. The server echoes each accepted action to every seat.
const (
	KindTerritorySelected Kind = "TERRITORY_SELECTED"
	KindSoldiersPlaced    Kind = "SOLDIERS_PLACED"
	KindAttackMade        Kind = "ATTACK_MADE"
	KindFortificationMade Kind = "FORTIFICATION_MADE"
)

// Errors and keepalive.
const (
	KindErrorMessage Kind = "ERROR_MESSAGE"
	KindInvalidMove  Kind = "INVALID_MOVE"
	KindNotYourTurn  Kind = "NOT_YOUR_TURN"
	KindPing         Kind = "PING"
	KindPong         Kind = "PONG"
)

var inbound = map[Kind]bool{
	KindCreateLobby:       true,
	KindJoinLobby:         true,
	KindLeaveLobby:        true,
	KindKickPlayer:        true,
	KindBanPlayer:         true,
	KindCloseLobby:        true,
	KindFindMatch:         true,
	KindSetName:           true,
	KindRematchRequest:    true,
	KindStartGame:         true,
	KindTerritorySelected: true,
	KindSoldiersPlaced:    true,
	KindAttackMade:        true,
	KindFortificationMade: true,
	KindEndPhase:          true,
	KindEndTurn:           true,
	KindPing:              true,
}

// Inbound reports whether clients may send k.
func (k Kind) Inbound() bool { return inbound[k] }

// Message is the single tagged envelope used in both directions.
type Message struct {
	Kind   Kind            `json:"kind"`
	Data   json.RawMessage `json:"data,omitempty"`
	Sender string          `json:"sender,omitempty"`
}

// New builds a message with payload encoded as its data.
func New(kind Kind, payload any) Message {
	m := Message{Kind: kind}
	if payload == nil {
		return m
	}
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are plain structs defined in this package; failure is a programming error.
		panic(fmt.Sprintf("protocol: encoding %s payload: %v", kind, err))
	}
	m.Data = data
	return m
}

// From returns a copy of m attributed to sender.
func (m Message) From(sender string) Message {
	m.Sender = sender
	return m
}

// Decode unmarshals the message data into v.
func (m Message) Decode(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrPayload, m.Kind)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrPayload, m.Kind, err)
	}
	return nil
}

// NamePayload carries a display name.
type NamePayload struct {
	Name string `json:"name"`
}

// LobbyResult echoes CREATE_LOBBY and JOIN_LOBBY.
type LobbyResult struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	LobbyID string `json:"lobby_id,omitempty"`
	Token   string `json:"token,omitempty"`
}

// PlayerEntry is one roster row.
type PlayerEntry struct {
	Name string `json:"name"`
	Host bool   `json:"host"`
	You  bool   `json:"you"`
}

// PlayerList is the per-recipient roster.
type PlayerList struct {
	LobbyID string        `json:"lobby_id"`
	Players []PlayerEntry `json:"players"`
	Host    string        `json:"host"`
	You     string        `json:"you"`
}

// ReasonPayload explains a rejection or departure.
type ReasonPayload struct {
	Name   string `json:"name,omitempty"`
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

// MatchFound tells a paired player its session.
type MatchFound struct {
	LobbyID  string `json:"lobby_id"`
	Token    string `json:"token"`
	Opponent string `json:"opponent,omitempty"`
}

// GameStarted announces a new game and its seat order.
type GameStarted struct {
	GameID  string   `json:"game_id"`
	Players []string `json:"players"`
	First   string   `json:"first"`
}

// TurnPayload announces a turn boundary.
type TurnPayload struct {
	Player         string `json:"player"`
	Turn           int    `json:"turn"`
	Reinforcements int    `json:"reinforcements,omitempty"`
}

// PhasePayload announces a phase change.
type PhasePayload struct {
	Player string         `json:"player"`
	From   conquest.Phase `json:"from"`
	To     conquest.Phase `json:"to"`
}

// GameOverPayload names the winner.
type GameOverPayload struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// TerritoryPayload names a single territory.
type TerritoryPayload struct {
	Territory string `json:"territory"`
}

// PlacePayload is a SOLDIERS_PLACED request and echo.
type PlacePayload struct {
	Territory string `json:"territory"`
	Count     int    `json:"count"`
}

// MovePayload is an ATTACK_MADE or FORTIFICATION_MADE request.
type MovePayload struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// AttackReport is the ATTACK_MADE echo.
type AttackReport struct {
	conquest.AttackResult
	Dice     int    `json:"dice"`
	Defender string `json:"defender"`
}
