package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/pkg/conquest"
)

// Settings configures sessions created by a Manager.
type Settings struct {
	Board       *conquest.Board
	LobbyArmies int
	MatchArmies int
	NameTimeout time.Duration
	Roller      conquest.Roller // nil rolls real dice
}

// DefaultSettings returns the standard board and starting armies.
func DefaultSettings() Settings {
	return Settings{
		Board:       conquest.StandardBoard(),
		LobbyArmies: conquest.LobbyStartingArmies,
		MatchArmies: conquest.MatchStartingArmies,
		NameTimeout: 30 * time.Second,
	}
}

type waiter struct {
	conn Conn
	name string
}

// Manager routes connections to sessions. It owns the hosted lobby pointer,
// the connection routing table, the ban list and the matchmaking slot. It
// never touches game state; each session's goroutine does.
type Manager struct {
	settings Settings
	tokens   SeatIssuer
	rec      Recorder

	mu       sync.Mutex
	lobby    *Lobby
	sessions map[string]*Lobby
	routes   map[string]*Lobby // conn ID -> session
	banned   map[string]bool
	waiting  *waiter
	closing  bool

	wg sync.WaitGroup
}

// NewManager creates a Manager.
func NewManager(settings Settings, tokens SeatIssuer, rec Recorder) *Manager {
	if settings.Board == nil {
		settings.Board = conquest.StandardBoard()
	}
	if tokens == nil {
		tokens = NoopIssuer{}
	}
	if rec == nil {
		rec = NoopRecorder{}
	}
	return &Manager{
		settings: settings,
		tokens:   tokens,
		rec:      rec,
		sessions: make(map[string]*Lobby),
		routes:   make(map[string]*Lobby),
		banned:   make(map[string]bool),
	}
}

// Handle processes one inbound message from c. Messages from a single
// connection must be handled in order; session-scoped work is queued to the
// session's goroutine.
func (m *Manager) Handle(c Conn, msg protocol.Message) {
	switch msg.Kind {
	case protocol.KindPing:
		send(c, protocol.New(protocol.KindPong, nil))
		return
	case protocol.KindCreateLobby:
		m.createLobby(c, msg)
		return
	case protocol.KindJoinLobby:
		m.joinLobby(c, msg)
		return
	case protocol.KindFindMatch:
		m.findMatch(c, msg)
		return
	}

	l := m.routeOf(c)
	if l == nil {
		switch msg.Kind {
		case protocol.KindLeaveLobby:
			if m.cancelWait(c) {
				return
			}
		case protocol.KindSetName:
			if m.renameWaiter(c, msg) {
				return
			}
		}
		reply(c, protocol.KindErrorMessage, ErrNotInLobby)
		return
	}
	if !l.submit(func() { l.handle(c, msg) }) {
		reply(c, protocol.KindErrorMessage, ErrNoLobby)
	}
}

// Disconnect removes c from whatever session or queue it is in.
func (m *Manager) Disconnect(c Conn) {
	m.mu.Lock()
	if m.waiting != nil && m.waiting.conn == c {
		m.waiting = nil
	}
	l := m.routes[c.ID()]
	delete(m.routes, c.ID())
	m.mu.Unlock()

	if l != nil {
		l.submit(func() { l.leave(c, "disconnected") })
	}
}

// Current returns the hosted lobby, if one is open.
func (m *Manager) Current() (*Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lobby, m.lobby != nil
}

// Lookup returns a live session by ID.
func (m *Manager) Lookup(sessionID string) (*Lobby, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.sessions[sessionID]
	return l, ok
}

// SessionCount returns the number of live sessions.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Banned reports whether name is banned.
func (m *Manager) Banned(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.banned[name]
}

// Shutdown closes every session with LOBBY_CLOSED and waits for their
// goroutines to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	sessions := make([]*Lobby, 0, len(m.sessions))
	for _, l := range m.sessions {
		sessions = append(sessions, l)
	}
	w := m.waiting
	m.waiting = nil
	m.mu.Unlock()

	if w != nil {
		w.conn.Close()
	}
	for _, l := range sessions {
		l.submit(func() { l.close(ErrShuttingDown.Error(), true) })
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Int("sessions", len(sessions)).Msg("All sessions closed")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) createLobby(c Conn, msg protocol.Message) {
	fail := func(err error) {
		send(c, protocol.New(protocol.KindLobbyCreated, protocol.LobbyResult{Reason: err.Error()}))
	}
	var p protocol.NamePayload
	if err := msg.Decode(&p); err != nil {
		fail(err)
		return
	}
	name, err := cleanName(p.Name)
	if err != nil {
		fail(err)
		return
	}

	m.mu.Lock()
	if err := m.checkFreeLocked(c); err != nil {
		m.mu.Unlock()
		fail(err)
		return
	}
	if m.lobby != nil {
		m.mu.Unlock()
		fail(ErrLobbyExists)
		return
	}
	if m.banned[name] {
		m.mu.Unlock()
		fail(ErrBanned)
		return
	}
	l := newLobby(m, model.VariantLobby)
	m.lobby = l
	m.sessions[l.ID] = l
	m.routes[c.ID()] = l
	m.mu.Unlock()

	m.start(l)
	l.submit(func() { l.open(c, name) })
}

func (m *Manager) joinLobby(c Conn, msg protocol.Message) {
	fail := func(err error) {
		send(c, protocol.New(protocol.KindLobbyJoined, protocol.LobbyResult{Reason: err.Error()}))
	}
	var p protocol.NamePayload
	if err := msg.Decode(&p); err != nil {
		fail(err)
		return
	}
	name, err := cleanName(p.Name)
	if err != nil {
		fail(err)
		return
	}

	m.mu.Lock()
	if err := m.checkFreeLocked(c); err != nil {
		m.mu.Unlock()
		fail(err)
		return
	}
	l := m.lobby
	if l == nil {
		m.mu.Unlock()
		fail(ErrNoLobby)
		return
	}
	// Bind before the join runs so later messages from c queue behind it.
	m.routes[c.ID()] = l
	m.mu.Unlock()

	if !l.submit(func() { l.join(c, name) }) {
		m.unbind(c, l)
		fail(ErrNoLobby)
	}
}

// checkFreeLocked rejects connections already seated or queued.
func (m *Manager) checkFreeLocked(c Conn) error {
	if m.closing {
		return ErrShuttingDown
	}
	if m.routes[c.ID()] != nil || (m.waiting != nil && m.waiting.conn == c) {
		return ErrAlreadySeated
	}
	return nil
}

func (m *Manager) start(l *Lobby) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		l.run()
	}()
}

func (m *Manager) routeOf(c Conn) *Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routes[c.ID()]
}

// unbind drops c's route if it still points at l.
func (m *Manager) unbind(c Conn, l *Lobby) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.routes[c.ID()] == l {
		delete(m.routes, c.ID())
	}
}

// forget removes a closed session and any routes still pointing at it.
func (m *Manager) forget(l *Lobby) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, l.ID)
	if m.lobby == l {
		m.lobby = nil
	}
	for id, r := range m.routes {
		if r == l {
			delete(m.routes, id)
		}
	}
}

func (m *Manager) ban(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.banned[name] = true
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}
