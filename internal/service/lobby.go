package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/pkg/conquest"
)

// Seat roles carried in seat tokens.
const (
	RoleHost   = "host"
	RolePlayer = "player"
)

const opsBuffer = 64

type seat struct {
	conn    Conn
	name    string
	player  conquest.PlayerID
	rematch bool
}

// Lobby is one session: a hosted lobby of 2-6 players or a paired match.
// All state below the channel fields is owned by the goroutine running
// run; every request is a closure queued on ops and executed in arrival
// order, so each mutation and its broadcasts finish before the next request
// starts.
type Lobby struct {
	ID      string
	Variant string

	mgr  *Manager
	ops  chan func()
	done chan struct{}
	log  zerolog.Logger

	seats        []*seat
	host         *seat
	game         *conquest.Game
	overAnnounce bool
	closed       bool
	nameTimer    *time.Timer
}

func newLobby(m *Manager, variant string) *Lobby {
	id := uuid.NewString()
	return &Lobby{
		ID:      id,
		Variant: variant,
		mgr:     m,
		ops:     make(chan func(), opsBuffer),
		done:    make(chan struct{}),
		log:     log.With().Str("lobbyId", id).Str("variant", variant).Logger(),
	}
}

func (l *Lobby) run() {
	for {
		select {
		case op := <-l.ops:
			op()
		case <-l.done:
			return
		}
	}
}

// submit queues op, reporting false once the session has closed.
func (l *Lobby) submit(op func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.ops <- op:
		return true
	case <-l.done:
		return false
	}
}

// Snapshot returns the current game state.
func (l *Lobby) Snapshot(ctx context.Context) (*conquest.Snapshot, error) {
	ch := make(chan *conquest.Snapshot, 1)
	ok := l.submit(func() {
		if l.game == nil {
			ch <- nil
			return
		}
		s := l.game.Snapshot()
		ch <- &s
	})
	if !ok {
		return nil, ErrNoLobby
	}
	select {
	case s := <-ch:
		if s == nil {
			return nil, ErrNoGame
		}
		return s, nil
	case <-l.done:
		return nil, ErrNoLobby
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Roster returns the current membership.
func (l *Lobby) Roster(ctx context.Context) (*model.Roster, error) {
	ch := make(chan model.Roster, 1)
	if !l.submit(func() { ch <- l.roster() }) {
		return nil, ErrNoLobby
	}
	select {
	case r := <-ch:
		return &r, nil
	case <-l.done:
		return nil, ErrNoLobby
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (l *Lobby) handle(c Conn, msg protocol.Message) {
	s := l.seatOf(c)
	if s == nil {
		reply(c, protocol.KindErrorMessage, ErrNotInLobby)
		return
	}
	switch msg.Kind {
	case protocol.KindLeaveLobby:
		l.leave(c, "left")
	case protocol.KindKickPlayer:
		l.kick(s, msg, false)
	case protocol.KindBanPlayer:
		l.kick(s, msg, true)
	case protocol.KindCloseLobby:
		if s != l.host {
			reply(c, protocol.KindErrorMessage, ErrNotHost)
			return
		}
		l.close("closed by host", true)
	case protocol.KindStartGame:
		l.startGame(s)
	case protocol.KindSetName:
		l.setName(s, msg)
	case protocol.KindRematchRequest:
		l.requestRematch(s)
	case protocol.KindTerritorySelected, protocol.KindSoldiersPlaced, protocol.KindAttackMade,
		protocol.KindFortificationMade, protocol.KindEndPhase, protocol.KindEndTurn:
		l.act(s, msg)
	default:
		reply(c, protocol.KindErrorMessage, protocol.ErrUnknownKind)
	}
}

// open seats the host of a new hosted lobby.
func (l *Lobby) open(c Conn, name string) {
	s := &seat{conn: c, name: name, player: conquest.NoPlayer}
	l.seats = append(l.seats, s)
	l.host = s
	send(c, protocol.New(protocol.KindLobbyCreated, protocol.LobbyResult{
		OK:      true,
		LobbyID: l.ID,
		Token:   l.token(s),
	}))
	l.broadcastRoster()
	l.record(model.EventSessionCreated, name, "", nil)
	l.log.Info().Str("host", name).Msg("Lobby created")
}

func (l *Lobby) join(c Conn, name string) {
	fail := func(err error) {
		l.mgr.unbind(c, l)
		send(c, protocol.New(protocol.KindLobbyJoined, protocol.LobbyResult{Reason: err.Error()}))
	}
	switch {
	case l.mgr.Banned(name):
		fail(ErrBanned)
		return
	case l.game != nil && !l.game.IsOver():
		fail(ErrGameInProgress)
		return
	case len(l.seats) >= conquest.MaxPlayers:
		fail(ErrLobbyFull)
		return
	case l.seatByName(name) != nil:
		fail(ErrNameTaken)
		return
	}

	s := &seat{conn: c, name: name, player: conquest.NoPlayer}
	l.seats = append(l.seats, s)
	send(c, protocol.New(protocol.KindLobbyJoined, protocol.LobbyResult{
		OK:      true,
		LobbyID: l.ID,
		Token:   l.token(s),
	}))
	l.broadcast(protocol.New(protocol.KindPlayerJoined, protocol.NamePayload{Name: name}))
	l.broadcastRoster()
	l.record(model.EventPlayerJoined, name, "", nil)
	l.log.Info().Str("player", name).Int("seats", len(l.seats)).Msg("Player joined lobby")
}

// leave removes c's seat. A connection with no seat (a join that was
// rejected, or a seat already removed) is ignored.
func (l *Lobby) leave(c Conn, reason string) {
	s := l.seatOf(c)
	if s == nil {
		return
	}
	l.mgr.unbind(c, l)
	l.record(model.EventPlayerLeft, s.name, "", map[string]string{"reason": reason})
	l.removeSeat(s, reason)
}

func (l *Lobby) kick(by *seat, msg protocol.Message, ban bool) {
	if by != l.host {
		reply(by.conn, protocol.KindErrorMessage, ErrNotHost)
		return
	}
	var p protocol.NamePayload
	if err := msg.Decode(&p); err != nil {
		reply(by.conn, protocol.KindErrorMessage, err)
		return
	}
	name, err := cleanName(p.Name)
	if err != nil {
		reply(by.conn, protocol.KindErrorMessage, err)
		return
	}
	target := l.seatByName(name)
	if target == by {
		reply(by.conn, protocol.KindErrorMessage, ErrSelfTarget)
		return
	}
	if target == nil && !ban {
		reply(by.conn, protocol.KindErrorMessage, ErrPlayerNotFound)
		return
	}

	kind, reason, event := protocol.KindPlayerKicked, "kicked by host", model.EventPlayerKicked
	if ban {
		kind, reason, event = protocol.KindPlayerBanned, "banned by host", model.EventPlayerBanned
		l.mgr.ban(name)
	}
	if target != nil {
		send(target.conn, protocol.New(kind, protocol.ReasonPayload{Name: name, Reason: reason}))
		l.mgr.unbind(target.conn, l)
		l.removeSeat(target, reason)
		target.conn.Close()
	}
	l.record(event, by.name, name, nil)
	l.log.Info().Str("host", by.name).Str("player", name).Bool("ban", ban).Msg("Player removed by host")
}

// removeSeat drops s from the session and settles the consequences: the
// player forfeits a running game, the host passes on, and an empty session
// closes.
func (l *Lobby) removeSeat(s *seat, reason string) {
	for i, other := range l.seats {
		if other == s {
			l.seats = append(l.seats[:i], l.seats[i+1:]...)
			break
		}
	}
	if l.Variant == model.VariantMatch {
		l.matchSeatLost(s, reason)
		return
	}

	l.broadcast(protocol.New(protocol.KindPlayerLeft, protocol.ReasonPayload{Name: s.name, Reason: reason}))
	if l.game != nil && !l.game.IsOver() && s.player != conquest.NoPlayer {
		l.forfeit(s)
	}
	if len(l.seats) == 0 {
		l.close("everyone left", false)
		return
	}
	if l.host == s {
		l.host = l.seats[0]
		l.record(model.EventHostChanged, s.name, l.host.name, nil)
		l.log.Info().Str("host", l.host.name).Msg("Host promoted")
	}
	l.broadcastRoster()
}

func (l *Lobby) startGame(s *seat) {
	if s != l.host {
		reply(s.conn, protocol.KindErrorMessage, ErrNotHost)
		return
	}
	if l.game != nil && !l.game.IsOver() {
		reply(s.conn, protocol.KindErrorMessage, ErrGameInProgress)
		return
	}
	if len(l.seats) < conquest.MinPlayers {
		reply(s.conn, protocol.KindErrorMessage, ErrNotEnoughPlayers)
		return
	}
	opts := conquest.LobbyOptions()
	if l.mgr.settings.LobbyArmies > 0 {
		opts.StartingArmies = l.mgr.settings.LobbyArmies
	}
	if err := l.beginGame(opts); err != nil {
		reply(s.conn, protocol.KindErrorMessage, err)
	}
}

// close ends the session. With dropConns every remaining connection is
// closed; otherwise remaining players are released back to the manager.
func (l *Lobby) close(reason string, dropConns bool) {
	if l.closed {
		return
	}
	l.closed = true
	if l.nameTimer != nil {
		l.nameTimer.Stop()
	}
	l.broadcast(protocol.New(protocol.KindLobbyClosed, protocol.ReasonPayload{Reason: reason}))
	seats := l.seats
	l.seats = nil
	l.mgr.forget(l)
	if dropConns {
		for _, s := range seats {
			s.conn.Close()
		}
	}
	l.mgr.rec.Drop(l.ID)
	l.record(model.EventSessionClosed, "", "", map[string]string{"reason": reason})
	l.log.Info().Str("reason", reason).Msg("Session closed")
	close(l.done)
}

func (l *Lobby) seatOf(c Conn) *seat {
	for _, s := range l.seats {
		if s.conn == c {
			return s
		}
	}
	return nil
}

func (l *Lobby) seatByName(name string) *seat {
	for _, s := range l.seats {
		if s.name == name {
			return s
		}
	}
	return nil
}

func (l *Lobby) rosterFor(s *seat) protocol.PlayerList {
	pl := protocol.PlayerList{LobbyID: l.ID, You: s.name, Players: make([]protocol.PlayerEntry, 0, len(l.seats))}
	if l.host != nil {
		pl.Host = l.host.name
	}
	for _, other := range l.seats {
		pl.Players = append(pl.Players, protocol.PlayerEntry{
			Name: other.name,
			Host: other == l.host,
			You:  other == s,
		})
	}
	return pl
}

func (l *Lobby) roster() model.Roster {
	r := model.Roster{SessionID: l.ID, Variant: l.Variant, Players: make([]string, 0, len(l.seats)), UpdatedAt: time.Now().UTC()}
	if l.host != nil {
		r.Host = l.host.name
	}
	if l.game != nil {
		r.GameID = l.game.ID
	}
	for _, s := range l.seats {
		r.Players = append(r.Players, s.name)
	}
	return r
}

func (l *Lobby) token(s *seat) string {
	role := RolePlayer
	if s == l.host {
		role = RoleHost
	}
	tok, err := l.mgr.tokens.IssueSeatToken(l.ID, s.name, role)
	if err != nil {
		l.log.Error().Err(err).Str("player", s.name).Msg("Failed to issue seat token")
		return ""
	}
	return tok
}

func (l *Lobby) record(eventType, actor, subject string, detail any) {
	ev := model.SessionEvent{
		SessionID: l.ID,
		Variant:   l.Variant,
		Type:      eventType,
		Actor:     actor,
		Subject:   subject,
		CreatedAt: time.Now().UTC(),
	}
	if detail != nil {
		if data, err := json.Marshal(detail); err == nil {
			ev.Detail = data
		}
	}
	l.mgr.rec.Event(ev)
}
