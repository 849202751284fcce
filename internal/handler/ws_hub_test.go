package handler

import (
	"errors"
	"sync"
	"testing"

	"github.com/freeeve/conquest/internal/protocol"
)

func newTestClient(transport string) *Client {
	return newClient(newPipeWire(true), transport, DefaultClientOptions())
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	c := newTestClient("tcp")

	hub.Register(c)
	if hub.ConnectionCount() != 1 {
		t.Errorf("expected 1 connection, got %d", hub.ConnectionCount())
	}

	hub.Unregister(c)
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubCloseTransport(t *testing.T) {
	hub := NewHub()
	tcp1, tcp2, ws := newTestClient("tcp"), newTestClient("tcp"), newTestClient("ws")
	for _, c := range []*Client{tcp1, tcp2, ws} {
		hub.Register(c)
	}
	if hub.TransportCount("tcp") != 2 || hub.TransportCount("ws") != 1 {
		t.Fatalf("unexpected counts tcp=%d ws=%d", hub.TransportCount("tcp"), hub.TransportCount("ws"))
	}

	if n := hub.CloseTransport("tcp"); n != 2 {
		t.Errorf("expected to close 2 clients, closed %d", n)
	}
	for _, c := range []*Client{tcp1, tcp2} {
		if err := c.Send(protocol.New(protocol.KindPong, nil)); !errors.Is(err, ErrConnClosed) {
			t.Errorf("tcp client should be closed, got %v", err)
		}
	}
	if err := ws.Send(protocol.New(protocol.KindPong, nil)); err != nil {
		t.Errorf("ws client should still be open, got %v", err)
	}

	hub.CloseAll()
	if err := ws.Send(protocol.New(protocol.KindPong, nil)); !errors.Is(err, ErrConnClosed) {
		t.Errorf("CloseAll should close every client, got %v", err)
	}
}

func TestHubConcurrentAccess(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c := newTestClient("ws")
			hub.Register(c)
			hub.ConnectionCount()
			hub.Unregister(c)
		}()
	}
	wg.Wait()
	if hub.ConnectionCount() != 0 {
		t.Errorf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}
