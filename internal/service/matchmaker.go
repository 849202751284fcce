package service

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/pkg/conquest"
)

// findMatch queues c for a two-player match. The manager holds at most one
// waiting connection; the next FIND_MATCH from another connection pairs
// with it.
func (m *Manager) findMatch(c Conn, msg protocol.Message) {
	name := ""
	if len(msg.Data) > 0 {
		var p protocol.NamePayload
		if err := msg.Decode(&p); err != nil {
			reply(c, protocol.KindErrorMessage, err)
			return
		}
		name = strings.TrimSpace(p.Name)
		if len(name) > MaxNameLength {
			reply(c, protocol.KindErrorMessage, ErrNameTooLong)
			return
		}
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		reply(c, protocol.KindErrorMessage, ErrShuttingDown)
		return
	}
	if m.routes[c.ID()] != nil {
		m.mu.Unlock()
		reply(c, protocol.KindErrorMessage, ErrAlreadySeated)
		return
	}
	if m.waiting == nil || m.waiting.conn == c {
		m.waiting = &waiter{conn: c, name: name}
		m.mu.Unlock()
		send(c, protocol.New(protocol.KindMatchWaiting, nil))
		log.Info().Str("connId", c.ID()).Msg("Waiting for a match")
		return
	}
	first := *m.waiting
	m.waiting = nil
	l := newLobby(m, model.VariantMatch)
	m.sessions[l.ID] = l
	m.routes[first.conn.ID()] = l
	m.routes[c.ID()] = l
	m.mu.Unlock()

	m.start(l)
	l.submit(func() { l.pair(first, waiter{conn: c, name: name}) })
}

// cancelWait removes c from the matchmaking slot.
func (m *Manager) cancelWait(c Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting == nil || m.waiting.conn != c {
		return false
	}
	m.waiting = nil
	return true
}

// renameWaiter updates the name of a queued, not yet paired connection.
func (m *Manager) renameWaiter(c Conn, msg protocol.Message) bool {
	var p protocol.NamePayload
	if err := msg.Decode(&p); err != nil {
		return false
	}
	name, err := cleanName(p.Name)
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.waiting == nil || m.waiting.conn != c {
		return false
	}
	m.waiting.name = name
	return true
}

// pair seats two matched connections and waits for both to be named.
func (l *Lobby) pair(a, b waiter) {
	if a.name != "" && a.name == b.name {
		b.name = ""
	}
	for _, w := range []waiter{a, b} {
		l.seats = append(l.seats, &seat{conn: w.conn, name: w.name, player: conquest.NoPlayer})
	}
	l.broadcastRoster()
	l.record(model.EventSessionCreated, a.name, b.name, nil)
	l.log.Info().Str("first", a.name).Str("second", b.name).Msg("Players paired")

	if l.allNamed() {
		l.startMatch()
		return
	}
	timeout := l.mgr.settings.NameTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	l.nameTimer = time.AfterFunc(timeout, func() {
		l.submit(func() {
			if l.game == nil {
				l.close("timed out waiting for player names", true)
			}
		})
	})
}

func (l *Lobby) setName(s *seat, msg protocol.Message) {
	if l.Variant != model.VariantMatch {
		reply(s.conn, protocol.KindErrorMessage, ErrNotMatch)
		return
	}
	if l.game != nil {
		reply(s.conn, protocol.KindErrorMessage, ErrGameInProgress)
		return
	}
	var p protocol.NamePayload
	if err := msg.Decode(&p); err != nil {
		reply(s.conn, protocol.KindErrorMessage, err)
		return
	}
	name, err := cleanName(p.Name)
	if err != nil {
		reply(s.conn, protocol.KindErrorMessage, err)
		return
	}
	if other := l.seatByName(name); other != nil && other != s {
		reply(s.conn, protocol.KindErrorMessage, ErrNameTaken)
		return
	}
	s.name = name
	l.broadcastRoster()
	if l.allNamed() {
		l.startMatch()
	}
}

func (l *Lobby) allNamed() bool {
	for _, s := range l.seats {
		if s.name == "" {
			return false
		}
	}
	return len(l.seats) == 2
}

// startMatch tells both players who they face and starts a game with a
// random first player.
func (l *Lobby) startMatch() {
	if l.nameTimer != nil {
		l.nameTimer.Stop()
		l.nameTimer = nil
	}
	for i, s := range l.seats {
		opp := l.seats[1-i]
		send(s.conn, protocol.New(protocol.KindMatchFound, protocol.MatchFound{
			LobbyID:  l.ID,
			Token:    l.token(s),
			Opponent: opp.name,
		}))
	}
	opts := conquest.MatchOptions()
	if l.mgr.settings.MatchArmies > 0 {
		opts.StartingArmies = l.mgr.settings.MatchArmies
	}
	if err := l.beginGame(opts); err != nil {
		l.close("could not start the game", true)
	}
}

func (l *Lobby) requestRematch(s *seat) {
	if l.Variant != model.VariantMatch {
		reply(s.conn, protocol.KindErrorMessage, ErrNotMatch)
		return
	}
	if l.game == nil || !l.game.IsOver() {
		reply(s.conn, protocol.KindErrorMessage, ErrGameNotOver)
		return
	}
	s.rematch = true
	l.broadcast(protocol.New(protocol.KindRematchRequest, nil).From(s.name))
	for _, other := range l.seats {
		if !other.rematch {
			return
		}
	}
	if len(l.seats) == 2 {
		l.log.Info().Msg("Rematch agreed")
		l.startMatch()
	}
}

// matchSeatLost settles a paired session after one side leaves. Before the
// game starts the session is aborted and the other connection closed; during
// a game the leaver forfeits and the opponent is released.
func (l *Lobby) matchSeatLost(s *seat, reason string) {
	if l.game == nil {
		l.close("opponent disconnected before the game started", true)
		return
	}
	if !l.game.IsOver() {
		l.forfeit(s)
	}
	l.broadcast(protocol.New(protocol.KindPlayerLeft, protocol.ReasonPayload{Name: s.name, Reason: reason}))
	l.close("opponent left", false)
}
