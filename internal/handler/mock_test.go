package handler

import (
	"io"
	"sync"

	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/internal/service"
)

type readResult struct {
	msg protocol.Message
	err error
}

// pipeWire is an in-memory wire. Reads come from in; closing in ends the
// stream with io.EOF.
type pipeWire struct {
	in     chan readResult
	resync bool

	mu     sync.Mutex
	out    []protocol.Message
	closed chan struct{}
	once   sync.Once
}

func newPipeWire(resync bool) *pipeWire {
	return &pipeWire{in: make(chan readResult, 16), resync: resync, closed: make(chan struct{})}
}

func (p *pipeWire) Read() (protocol.Message, error) {
	select {
	case r, ok := <-p.in:
		if !ok {
			return protocol.Message{}, io.EOF
		}
		return r.msg, r.err
	case <-p.closed:
		return protocol.Message{}, io.EOF
	}
}

func (p *pipeWire) Write(m protocol.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closed:
		return io.ErrClosedPipe
	default:
	}
	p.out = append(p.out, m)
	return nil
}

func (p *pipeWire) Ping() error { return nil }

func (p *pipeWire) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeWire) Resyncs() bool      { return p.resync }
func (p *pipeWire) RemoteAddr() string { return "pipe" }

func (p *pipeWire) written() []protocol.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]protocol.Message(nil), p.out...)
}

func (p *pipeWire) isClosed() bool {
	select {
	case <-p.closed:
		return true
	default:
		return false
	}
}

type recordingRouter struct {
	mu           sync.Mutex
	handled      []protocol.Message
	disconnected int
}

func (r *recordingRouter) Handle(_ service.Conn, msg protocol.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, msg)
}

func (r *recordingRouter) Disconnect(service.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.disconnected++
}

func kindsOf(msgs []protocol.Message) []protocol.Kind {
	out := make([]protocol.Kind, len(msgs))
	for i, m := range msgs {
		out[i] = m.Kind
	}
	return out
}
