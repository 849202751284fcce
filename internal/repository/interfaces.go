package repository

import (
	"context"
	"encoding/json"

	"github.com/freeeve/conquest/internal/model"
)

// SnapshotCache holds live session state (Redis).
type SnapshotCache interface {
	SetSnapshot(ctx context.Context, sessionID string, snapshot json.RawMessage) error
	GetSnapshot(ctx context.Context, sessionID string) (json.RawMessage, error)
	SetRoster(ctx context.Context, roster model.Roster) error
	GetRoster(ctx context.Context, sessionID string) (*model.Roster, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// AuditLog records session lifecycle and moderation events (Postgres).
type AuditLog interface {
	Append(ctx context.Context, ev model.SessionEvent) error
	ListBySession(ctx context.Context, sessionID string, limit int) ([]model.SessionEvent, error)
}
