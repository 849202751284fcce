//go:build integration

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/protocol"
	"github.com/freeeve/conquest/internal/repository/postgres"
	redisrepo "github.com/freeeve/conquest/internal/repository/redis"
	"github.com/freeeve/conquest/internal/testutil"
	"github.com/freeeve/conquest/pkg/conquest"
)

type testEnv struct {
	cache  *redisrepo.Client
	events *postgres.EventRepo
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupDB(t)
	rdb := testutil.SetupRedis(t)
	testutil.CleanupDB(t, db)
	testutil.CleanupRedis(t, rdb)
	return &testEnv{cache: redisrepo.NewClientFromPool(rdb), events: postgres.NewEventRepo(db)}
}

func TestLobbyMirroredToStores(t *testing.T) {
	env := setupEnv(t)
	mirror := NewMirror(env.cache, env.events)
	m := NewManager(DefaultSettings(), fakeIssuer{}, mirror)
	ctx := context.Background()

	conns := seatLobby(t, m, "ann", "bob")
	l := lobbyOf(t, m)
	do(t, m, conns[0], protocol.KindStartGame, nil)

	flush, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := m.Shutdown(flush); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := mirror.Close(flush); err != nil {
		t.Fatalf("mirror close: %v", err)
	}

	events, err := env.events.ListBySession(ctx, l.ID, 0)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	want := []string{model.EventSessionCreated, model.EventPlayerJoined, model.EventGameStarted, model.EventSessionClosed}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(events))
	}
	for i, ev := range events {
		if ev.Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], ev.Type)
		}
	}

	if snap, _ := env.cache.GetSnapshot(ctx, l.ID); snap != nil {
		t.Error("closing the session should drop the cached snapshot")
	}
}

func TestSnapshotCachedWhileLive(t *testing.T) {
	env := setupEnv(t)
	mirror := NewMirror(env.cache, env.events)
	m := NewManager(DefaultSettings(), fakeIssuer{}, mirror)
	ctx := context.Background()
	t.Cleanup(func() {
		c, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		m.Shutdown(c)
		mirror.Close(c)
	})

	conns := seatLobby(t, m, "ann", "bob", "cat")
	l := lobbyOf(t, m)
	do(t, m, conns[0], protocol.KindStartGame, nil)

	var snap conquest.Snapshot
	eventually(t, "cached snapshot", func() bool {
		data, err := env.cache.GetSnapshot(ctx, l.ID)
		if err != nil || data == nil {
			return false
		}
		return json.Unmarshal(data, &snap) == nil
	})
	if snap.Phase != conquest.PhaseSetup || len(snap.Players) != 3 {
		t.Errorf("unexpected cached snapshot phase=%s players=%d", snap.Phase, len(snap.Players))
	}
	eventually(t, "cached roster", func() bool {
		r, err := env.cache.GetRoster(ctx, l.ID)
		return err == nil && r != nil && r.GameID == snap.GameID
	})
}
