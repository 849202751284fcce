package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/freeeve/conquest/internal/model"
)

// Key patterns for mirrored session state.
func snapshotKey(sessionID string) string { return "game:" + sessionID + ":snapshot" }
func rosterKey(sessionID string) string   { return "lobby:" + sessionID + ":roster" }

// StateTTL is how long a mirrored key lives after its last write.
const StateTTL = 24 * time.Hour

// SetSnapshot stores the latest game snapshot JSON.
func (c *Client) SetSnapshot(ctx context.Context, sessionID string, snapshot json.RawMessage) error {
	return c.rdb.Set(ctx, snapshotKey(sessionID), []byte(snapshot), StateTTL).Err()
}

// GetSnapshot retrieves the latest snapshot. It returns nil, nil if none is stored.
func (c *Client) GetSnapshot(ctx context.Context, sessionID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

// SetRoster stores a session's membership.
func (c *Client) SetRoster(ctx context.Context, roster model.Roster) error {
	data, err := json.Marshal(roster)
	if err != nil {
		return fmt.Errorf("marshal roster: %w", err)
	}
	return c.rdb.Set(ctx, rosterKey(roster.SessionID), data, StateTTL).Err()
}

// GetRoster retrieves a session's membership. It returns nil, nil if none is stored.
func (c *Client) GetRoster(ctx context.Context, sessionID string) (*model.Roster, error) {
	data, err := c.rdb.Get(ctx, rosterKey(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get roster: %w", err)
	}
	var r model.Roster
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal roster: %w", err)
	}
	return &r, nil
}

// DeleteSession removes all mirrored keys for a session.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.rdb.Del(ctx, snapshotKey(sessionID), rosterKey(sessionID)).Err()
}
