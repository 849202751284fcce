package model

import (
	"encoding/json"
	"time"
)

// Session lifecycle and moderation event types recorded in the audit log.
const (
	EventSessionCreated = "session_created"
	EventPlayerJoined   = "player_joined"
	EventPlayerLeft     = "player_left"
	EventPlayerKicked   = "player_kicked"
	EventPlayerBanned   = "player_banned"
	EventHostChanged    = "host_changed"
	EventGameStarted    = "game_started"
	EventGameOver       = "game_over"
	EventSessionClosed  = "session_closed"
)

// Session variants.
const (
	VariantLobby = "lobby"
	VariantMatch = "match"
)

// SessionEvent is one row of a session's audit log.
type SessionEvent struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	Variant   string          `json:"variant"`
	Type      string          `json:"type"`
	Actor     string          `json:"actor,omitempty"`
	Subject   string          `json:"subject,omitempty"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Roster is the cached membership of a live session.
type Roster struct {
	SessionID string    `json:"session_id"`
	Variant   string    `json:"variant"`
	Host      string    `json:"host,omitempty"`
	Players   []string  `json:"players"`
	GameID    string    `json:"game_id,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}
