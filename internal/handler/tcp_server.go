package handler

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/protocol"
)

// DefaultPort is the game's TCP port.
const DefaultPort = 3131

// tcpWire frames messages as a stream of JSON objects on a TCP socket.
type tcpWire struct {
	conn net.Conn
	dec  *protocol.Decoder
	bw   *bufio.Writer
	enc  *protocol.Encoder
}

func newTCPWire(conn net.Conn) *tcpWire {
	bw := bufio.NewWriter(conn)
	return &tcpWire{
		conn: conn,
		dec:  protocol.NewDecoder(conn),
		bw:   bw,
		enc:  protocol.NewEncoder(bw),
	}
}

func (t *tcpWire) Read() (protocol.Message, error) { return t.dec.Decode() }

func (t *tcpWire) Write(m protocol.Message) error {
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.enc.Encode(m); err != nil {
		return err
	}
	return t.bw.Flush()
}

// Ping is a no-op; TCP clients send PING themselves and the socket uses
// keepalives.
func (t *tcpWire) Ping() error        { return nil }
func (t *tcpWire) Close() error       { return t.conn.Close() }
func (t *tcpWire) Resyncs() bool      { return false }
func (t *tcpWire) RemoteAddr() string { return t.conn.RemoteAddr().String() }

// TCPServer accepts game connections on a TCP listener.
type TCPServer struct {
	router Router
	hub    *Hub
	opts   ClientOptions

	mu       sync.Mutex
	ln       net.Listener
	closing  bool
	conns    sync.WaitGroup
	acceptWG sync.WaitGroup
}

// NewTCPServer creates a TCPServer that hands every connection to router.
func NewTCPServer(router Router, hub *Hub, opts ClientOptions) *TCPServer {
	return &TCPServer{router: router, hub: hub, opts: opts}
}

// Listen binds addr. Use Addr to learn the port when addr ends in ":0".
func (s *TCPServer) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	log.Info().Str("addr", ln.Addr().String()).Msg("Game server listening")
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Serve accepts connections until Shutdown. It returns nil after a clean
// shutdown.
func (s *TCPServer) Serve() error {
	s.mu.Lock()
	ln := s.ln
	s.mu.Unlock()
	if ln == nil {
		return errors.New("tcp server: Listen not called")
	}
	s.acceptWG.Add(1)
	defer s.acceptWG.Done()

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosing() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = min(max(2*backoff, 5*time.Millisecond), time.Second)
				log.Warn().Err(err).Dur("retryIn", backoff).Msg("Accept failed")
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0
		if tc, ok := conn.(*net.TCPConn); ok {
			tc.SetKeepAlive(true)
			tc.SetKeepAlivePeriod(pongWait)
		}
		s.conns.Add(1)
		go s.handle(conn)
	}
}

func (s *TCPServer) handle(conn net.Conn) {
	defer s.conns.Done()
	c := newClient(newTCPWire(conn), "tcp", s.opts)
	s.hub.Register(c)
	defer s.hub.Unregister(c)
	c.Serve(s.router)
}

// Shutdown stops accepting, closes every live TCP client and waits for their
// goroutines, or for ctx to end.
func (s *TCPServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	ln := s.ln
	s.mu.Unlock()
	if ln != nil {
		ln.Close()
	}
	s.acceptWG.Wait()
	s.hub.CloseTransport("tcp")

	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *TCPServer) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}
