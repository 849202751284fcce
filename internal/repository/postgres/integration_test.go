//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/testutil"
)

var testDB *sql.DB

func setup(t *testing.T) *EventRepo {
	t.Helper()
	if testDB == nil {
		testDB = testutil.SetupDB(t)
	}
	testutil.CleanupDB(t, testDB)
	return NewEventRepo(testDB)
}

func TestAppendAndList(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()

	events := []model.SessionEvent{
		{SessionID: "s1", Variant: model.VariantLobby, Type: model.EventSessionCreated, Actor: "ann"},
		{SessionID: "s1", Variant: model.VariantLobby, Type: model.EventPlayerJoined, Actor: "bob"},
		{SessionID: "s2", Variant: model.VariantMatch, Type: model.EventSessionCreated},
		{SessionID: "s1", Variant: model.VariantLobby, Type: model.EventPlayerKicked, Actor: "ann", Subject: "bob",
			Detail: json.RawMessage(`{"reason":"kicked by host"}`)},
	}
	for _, ev := range events {
		if err := repo.Append(ctx, ev); err != nil {
			t.Fatalf("append %s: %v", ev.Type, err)
		}
	}

	got, err := repo.ListBySession(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	want := []string{model.EventSessionCreated, model.EventPlayerJoined, model.EventPlayerKicked}
	for i, ev := range got {
		if ev.Type != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], ev.Type)
		}
		if ev.ID == 0 || ev.CreatedAt.IsZero() {
			t.Errorf("event %d: id and created_at should be set, got %+v", i, ev)
		}
	}
	kick := got[2]
	if kick.Subject != "bob" || kick.Actor != "ann" {
		t.Errorf("unexpected kick event %+v", kick)
	}
	var detail map[string]string
	if err := json.Unmarshal(kick.Detail, &detail); err != nil || detail["reason"] != "kicked by host" {
		t.Errorf("detail round-trip failed: %s", string(kick.Detail))
	}
	if got[0].Subject != "" || got[0].Detail != nil {
		t.Errorf("empty subject and detail should read back empty, got %+v", got[0])
	}
}

func TestListLimit(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		repo.Append(ctx, model.SessionEvent{SessionID: "s1", Variant: model.VariantLobby, Type: model.EventPlayerJoined})
	}
	got, err := repo.ListBySession(ctx, "s1", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 events, got %d", len(got))
	}
}

func TestAppendKeepsTimestamp(t *testing.T) {
	repo := setup(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Append(ctx, model.SessionEvent{SessionID: "s1", Variant: model.VariantMatch, Type: model.EventGameOver, CreatedAt: at}); err != nil {
		t.Fatalf("append: %v", err)
	}
	got, err := repo.ListBySession(ctx, "s1", 10)
	if err != nil || len(got) != 1 {
		t.Fatalf("list: %v %v", got, err)
	}
	if !got[0].CreatedAt.Equal(at) {
		t.Errorf("expected %v, got %v", at, got[0].CreatedAt)
	}
}

func TestListUnknownSession(t *testing.T) {
	repo := setup(t)
	got, err := repo.ListBySession(context.Background(), "nope", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}
