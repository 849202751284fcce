package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/internal/service"
)

func startWS(t *testing.T, origins string) (string, *WSHandler) {
	t.Helper()
	mgr := service.NewManager(service.DefaultSettings(), nil, nil)
	h := NewWSHandler(mgr, NewHub(), DefaultClientOptions(), origins)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/ws", h.ServeWS)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		h.Shutdown()
		srv.Close()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws", h
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readKind(t *testing.T, conn *websocket.Conn, kind protocol.Kind) protocol.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var m protocol.Message
		if err := conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", kind, err)
		}
		if m.Kind == kind {
			return m
		}
	}
}

func TestWebSocketSpeaksProtocol(t *testing.T) {
	url, h := startWS(t, "*")
	conn := dialWS(t, url)

	if err := conn.WriteJSON(protocol.New(protocol.KindCreateLobby, protocol.NamePayload{Name: "ann"})); err != nil {
		t.Fatalf("write: %v", err)
	}
	var created protocol.LobbyResult
	readKind(t, conn, protocol.KindLobbyCreated).Decode(&created)
	if !created.OK {
		t.Fatalf("create failed: %+v", created)
	}
	readKind(t, conn, protocol.KindPlayerList)

	conn.WriteMessage(websocket.TextMessage, []byte("{broken"))
	readKind(t, conn, protocol.KindErrorMessage)

	conn.WriteJSON(protocol.New(protocol.KindPing, nil))
	readKind(t, conn, protocol.KindPong)

	if h.hub.TransportCount("ws") != 1 {
		t.Errorf("expected one websocket client, got %d", h.hub.TransportCount("ws"))
	}
}

func TestWebSocketOriginCheck(t *testing.T) {
	url, _ := startWS(t, "https://play.example.com")

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("foreign origin should be refused")
	}

	header = http.Header{"Origin": []string{"https://play.example.com"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin refused: %v", err)
	}
	conn.Close()
}

func TestWebSocketShutdownClosesClients(t *testing.T) {
	url, h := startWS(t, "*")
	conn := dialWS(t, url)
	conn.WriteJSON(protocol.New(protocol.KindPing, nil))
	readKind(t, conn, protocol.KindPong)

	h.Shutdown()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("expected a normal close, got %v", err)
	}
}
