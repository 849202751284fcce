package service

import (
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/protocol"
)

// Conn is a connected client as seen by sessions. Send must not block: it
// queues the message or fails, and a failed Send closes the connection.
// Implemented by handler.Client.
type Conn interface {
	ID() string
	Send(protocol.Message) error
	Close()
}

// SeatIssuer mints seat tokens for the HTTP status API.
// Implemented by auth.JWTManager.
type SeatIssuer interface {
	IssueSeatToken(sessionID, player, role string) (string, error)
}

// NoopIssuer issues empty tokens, for tests or when the status API is off.
type NoopIssuer struct{}

func (NoopIssuer) IssueSeatToken(string, string, string) (string, error) { return "", nil }

// send queues m on c, logging a failed enqueue. The connection closes itself
// on failure, and its disconnect is processed like any other.
func send(c Conn, m protocol.Message) {
	if err := c.Send(m); err != nil {
		log.Warn().Err(err).Str("connId", c.ID()).Str("kind", string(m.Kind)).Msg("Send failed, dropping connection")
	}
}

// reply sends a failure reply of the given kind carrying err's text.
func reply(c Conn, kind protocol.Kind, err error) {
	send(c, protocol.New(kind, protocol.ReasonPayload{Reason: err.Error()}))
}

// broadcast queues m on every seat, in seat order.
func (l *Lobby) broadcast(m protocol.Message) {
	for _, s := range l.seats {
		send(s.conn, m)
	}
}

// broadcastRoster sends each seat its own PLAYER_LIST, marking host and "you".
func (l *Lobby) broadcastRoster() {
	for _, s := range l.seats {
		send(s.conn, protocol.New(protocol.KindPlayerList, l.rosterFor(s)))
	}
	l.mgr.rec.Roster(l.roster())
}
