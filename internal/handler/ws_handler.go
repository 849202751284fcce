package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/protocol"
)

// wsWire carries one message per websocket text frame.
type wsWire struct {
	conn *websocket.Conn
}

func newWSWire(conn *websocket.Conn) *wsWire {
	conn.SetReadLimit(protocol.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &wsWire{conn: conn}
}

func (w *wsWire) Read() (protocol.Message, error) {
	for {
		typ, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("remote", w.RemoteAddr()).Msg("WebSocket unexpected close")
			}
			return protocol.Message{}, err
		}
		if typ != websocket.TextMessage {
			continue
		}
		// Any frame from the peer proves it is alive.
		w.conn.SetReadDeadline(time.Now().Add(pongWait))
		return protocol.Parse(data)
	}
}

func (w *wsWire) Write(m protocol.Message) error {
	data, err := protocol.Marshal(m)
	if err != nil {
		return err
	}
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

func (w *wsWire) Ping() error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

func (w *wsWire) Close() error {
	w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	return w.conn.Close()
}

func (w *wsWire) Resyncs() bool      { return true }
func (w *wsWire) RemoteAddr() string { return w.conn.RemoteAddr().String() }

// WSHandler serves the game protocol to browser clients over websockets.
type WSHandler struct {
	router   Router
	hub      *Hub
	opts     ClientOptions
	upgrader websocket.Upgrader
	wg       sync.WaitGroup
}

// NewWSHandler creates a WSHandler. allowedOrigins is "*" or a
// comma-separated list of origins.
func NewWSHandler(router Router, hub *Hub, opts ClientOptions, allowedOrigins string) *WSHandler {
	h := &WSHandler{router: router, hub: hub, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed string) func(*http.Request) bool {
	if allowed == "" || allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool)
	for _, o := range strings.Split(allowed, ",") {
		set[strings.TrimSpace(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// ServeWS handles GET /api/v1/ws. Players identify themselves in
// CREATE_LOBBY, JOIN_LOBBY or FIND_MATCH, exactly as on TCP.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := newClient(newWSWire(conn), "ws", h.opts)
	h.hub.Register(c)
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer h.hub.Unregister(c)
		c.Serve(h.router)
	}()
	log.Info().Str("connId", c.ID()).Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// Shutdown closes every websocket client and waits for them to finish.
func (h *WSHandler) Shutdown() {
	h.hub.CloseTransport("ws")
	h.wg.Wait()
}
