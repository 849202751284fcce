package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/pkg/conquest"
)

var errFakeClosed = errors.New("connection closed")

type fakeConn struct {
	id     string
	mu     sync.Mutex
	msgs   []protocol.Message
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(m protocol.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return errFakeClosed
	}
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) kinds() []protocol.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Kind, len(f.msgs))
	for i, m := range f.msgs {
		out[i] = m.Kind
	}
	return out
}

func (f *fakeConn) count(kind protocol.Kind) int {
	n := 0
	for _, k := range f.kinds() {
		if k == kind {
			n++
		}
	}
	return n
}

// last returns the most recent message of kind.
func (f *fakeConn) last(kind protocol.Kind) (protocol.Message, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.msgs) - 1; i >= 0; i-- {
		if f.msgs[i].Kind == kind {
			return f.msgs[i], true
		}
	}
	return protocol.Message{}, false
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = nil
}

type fakeIssuer struct{}

func (fakeIssuer) IssueSeatToken(sessionID, player, role string) (string, error) {
	return fmt.Sprintf("tok:%s:%s:%s", sessionID, player, role), nil
}

type recordingRecorder struct {
	mu        sync.Mutex
	events    []model.SessionEvent
	snapshots map[string]conquest.Snapshot
	dropped   []string
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{snapshots: make(map[string]conquest.Snapshot)}
}

func (r *recordingRecorder) Snapshot(id string, s conquest.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[id] = s
}

func (r *recordingRecorder) Roster(model.Roster) {}

func (r *recordingRecorder) Event(ev model.SessionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingRecorder) Drop(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropped = append(r.dropped, id)
}

func (r *recordingRecorder) hasEvent(eventType, subject string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range r.events {
		if ev.Type == eventType && (subject == "" || ev.Subject == subject || ev.Actor == subject) {
			return true
		}
	}
	return false
}

// scriptedDice returns canned rolls, then ones.
func scriptedDice(rolls ...[]int) conquest.Roller {
	var mu sync.Mutex
	return conquest.RollerFunc(func(n int) []int {
		mu.Lock()
		defer mu.Unlock()
		if len(rolls) > 0 {
			r := rolls[0]
			rolls = rolls[1:]
			return r
		}
		out := make([]int, n)
		for i := range out {
			out[i] = 1
		}
		return out
	})
}

// lineBoard builds n territories T1..Tn in a chain, one continent.
func lineBoard(t *testing.T, n int) *conquest.Board {
	t.Helper()
	names := make([]string, n)
	var edges [][2]string
	for i := range names {
		names[i] = fmt.Sprintf("T%d", i+1)
		if i > 0 {
			edges = append(edges, [2]string{names[i-1], names[i]})
		}
	}
	b, err := conquest.NewBoard([]conquest.ContinentDef{{Continent: "line", Bonus: 1, Territories: names}}, edges)
	if err != nil {
		t.Fatalf("building board: %v", err)
	}
	return b
}

// drain waits until every operation queued on l so far has run.
func drain(t *testing.T, l *Lobby) {
	t.Helper()
	if l == nil {
		return
	}
	ch := make(chan struct{})
	if !l.submit(func() { close(ch) }) {
		return
	}
	select {
	case <-ch:
	case <-l.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out draining session")
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func decode[T any](t *testing.T, m protocol.Message) T {
	t.Helper()
	var v T
	if err := m.Decode(&v); err != nil {
		t.Fatalf("decode %s: %v", m.Kind, err)
	}
	return v
}
