package handler

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/freeeve/conquest/internal/logger"
	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/internal/service"
)

var (
	ErrSendBufferFull = errors.New("send buffer full")
	ErrConnClosed     = errors.New("connection closed")
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = 54 * time.Second // Must be less than pongWait
	sendBufSize = 256
)

// Router receives every inbound message and the final disconnect of a client.
// *service.Manager implements it.
type Router interface {
	Handle(c service.Conn, msg protocol.Message)
	Disconnect(c service.Conn)
}

// wire is one framed, bidirectional message connection.
type wire interface {
	Read() (protocol.Message, error)
	Write(protocol.Message) error
	Ping() error
	Close() error
	// Resyncs reports whether reading can continue after ErrMalformed.
	Resyncs() bool
	RemoteAddr() string
}

// ClientOptions tunes per-connection limits.
type ClientOptions struct {
	SendBuffer        int
	MessagesPerSecond float64
	MessageBurst      int
}

// DefaultClientOptions returns the standard limits.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{SendBuffer: sendBufSize, MessagesPerSecond: 20, MessageBurst: 40}
}

// Client is one player connection. Inbound messages are read on the
// goroutine running Serve; outbound messages are queued by Send and written
// by a dedicated writer goroutine.
type Client struct {
	id        string
	transport string
	w         wire
	log       zerolog.Logger
	limiter   *rate.Limiter

	mu     sync.Mutex
	closed bool
	send   chan protocol.Message

	writerDone chan struct{}
}

func newClient(w wire, transport string, opts ClientOptions) *Client {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = sendBufSize
	}
	limit := rate.Inf
	if opts.MessagesPerSecond > 0 {
		limit = rate.Limit(opts.MessagesPerSecond)
	}
	id := logger.NewConnID()
	return &Client{
		id:         id,
		transport:  transport,
		w:          w,
		log:        logger.ForConn(id, transport, w.RemoteAddr()),
		limiter:    rate.NewLimiter(limit, max(opts.MessageBurst, 1)),
		send:       make(chan protocol.Message, opts.SendBuffer),
		writerDone: make(chan struct{}),
	}
}

// ID returns the connection ID.
func (c *Client) ID() string { return c.id }

// Send queues m for delivery. It never blocks: a client that cannot keep up
// is disconnected instead of skipping a message.
func (c *Client) Send(m protocol.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- m:
		return nil
	default:
		c.log.Warn().Str("kind", string(m.Kind)).Int("buffered", len(c.send)).Msg("Send buffer full, closing connection")
		c.closeLocked()
		return ErrSendBufferFull
	}
}

// Close stops accepting messages. Messages already queued are written before
// the underlying connection is closed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Serve runs the connection until either side ends it, then reports the
// disconnect to r.
func (c *Client) Serve(r Router) {
	c.log.Info().Msg("Client connected")
	go c.writePump()
	c.readPump(r)
	r.Disconnect(c)
	c.Close()
	<-c.writerDone
	c.log.Info().Msg("Client disconnected")
}

func (c *Client) readPump(r Router) {
	for {
		msg, err := c.w.Read()
		if err != nil {
			recoverable := errors.Is(err, protocol.ErrUnknownKind) ||
				(errors.Is(err, protocol.ErrMalformed) && c.w.Resyncs())
			if recoverable {
				c.log.Warn().Err(err).Msg("Rejected inbound message")
				c.Send(protocol.New(protocol.KindErrorMessage, protocol.ReasonPayload{Reason: err.Error()}))
				continue
			}
			if errors.Is(err, protocol.ErrMalformed) {
				c.log.Warn().Err(err).Msg("Malformed stream, closing connection")
				c.Send(protocol.New(protocol.KindErrorMessage, protocol.ReasonPayload{Reason: err.Error()}))
				return
			}
			if !c.isClosed() {
				c.log.Debug().Err(err).Msg("Read ended")
			}
			return
		}
		logger.LogMessage(c.log, "in", string(msg.Kind), msg.Data)
		if !c.limiter.Allow() {
			c.log.Warn().Str("kind", string(msg.Kind)).Msg("Rate limit exceeded, message dropped")
			c.Send(protocol.New(protocol.KindErrorMessage, protocol.ReasonPayload{Reason: "rate limit exceeded"}))
			continue
		}
		msg.Sender = ""
		r.Handle(c, msg)
	}
}

func (c *Client) writePump() {
	defer close(c.writerDone)
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.w.Close()
	}()

	for {
		select {
		case m, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.w.Write(m); err != nil {
				c.log.Debug().Err(err).Str("kind", string(m.Kind)).Msg("Write failed")
				c.Close()
				return
			}
			logger.LogMessage(c.log, "out", string(m.Kind), m.Data)
		case <-ticker.C:
			if err := c.w.Ping(); err != nil {
				c.Close()
				return
			}
		}
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
