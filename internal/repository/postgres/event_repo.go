package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/conquest/internal/model"
)

// DefaultEventLimit caps ListBySession when no limit is given.
const DefaultEventLimit = 200

// EventRepo stores the session audit log.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo creates an EventRepo.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

// Append inserts ev. The ID and, when unset, the creation time are assigned
// by the database.
func (r *EventRepo) Append(ctx context.Context, ev model.SessionEvent) error {
	var createdAt any
	if !ev.CreatedAt.IsZero() {
		createdAt = ev.CreatedAt
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO session_events (session_id, variant, event_type, actor, subject, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, COALESCE($7, now()))`,
		ev.SessionID, ev.Variant, ev.Type, nullStr(ev.Actor), nullStr(ev.Subject), nullStr(string(ev.Detail)), createdAt,
	)
	if err != nil {
		return fmt.Errorf("append session event: %w", err)
	}
	return nil
}

// ListBySession returns a session's events, oldest first.
func (r *EventRepo) ListBySession(ctx context.Context, sessionID string, limit int) ([]model.SessionEvent, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, session_id, variant, event_type, COALESCE(actor, ''), COALESCE(subject, ''), detail, created_at
		 FROM session_events
		 WHERE session_id = $1
		 ORDER BY id
		 LIMIT $2`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list session events: %w", err)
	}
	defer rows.Close()

	var events []model.SessionEvent
	for rows.Next() {
		var ev model.SessionEvent
		var detail []byte
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.Variant, &ev.Type, &ev.Actor, &ev.Subject, &detail, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		if len(detail) > 0 {
			ev.Detail = json.RawMessage(detail)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
