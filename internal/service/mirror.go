package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/repository"
	"github.com/freeeve/conquest/pkg/conquest"
)

// Recorder receives session state for out-of-process mirrors. Calls are made
// from session goroutines and must not block.
type Recorder interface {
	Snapshot(sessionID string, snap conquest.Snapshot)
	Roster(r model.Roster)
	Event(ev model.SessionEvent)
	Drop(sessionID string)
}

// NoopRecorder discards everything.
type NoopRecorder struct{}

func (NoopRecorder) Snapshot(string, conquest.Snapshot) {}
func (NoopRecorder) Roster(model.Roster)                {}
func (NoopRecorder) Event(model.SessionEvent)           {}
func (NoopRecorder) Drop(string)                        {}

const (
	mirrorBuffer     = 1024
	mirrorJobTimeout = 5 * time.Second
)

type mirrorJob struct {
	name      string
	sessionID string
	run       func(ctx context.Context) error
}

// Mirror writes snapshots and rosters to the cache and events to the audit
// log on a single goroutine, in the order they were recorded. Either store
// may be nil. When the queue is full new work is dropped and logged; live
// play never waits on storage.
type Mirror struct {
	cache repository.SnapshotCache
	audit repository.AuditLog

	mu     sync.Mutex
	closed bool
	jobs   chan mirrorJob
	done   chan struct{}
}

// NewMirror starts a Mirror.
func NewMirror(cache repository.SnapshotCache, audit repository.AuditLog) *Mirror {
	m := &Mirror{
		cache: cache,
		audit: audit,
		jobs:  make(chan mirrorJob, mirrorBuffer),
		done:  make(chan struct{}),
	}
	go m.run()
	return m
}

func (m *Mirror) run() {
	defer close(m.done)
	for job := range m.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), mirrorJobTimeout)
		if err := job.run(ctx); err != nil {
			log.Error().Err(err).Str("job", job.name).Str("sessionId", job.sessionID).Msg("Mirror write failed")
		}
		cancel()
	}
}

func (m *Mirror) enqueue(job mirrorJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	select {
	case m.jobs <- job:
	default:
		log.Warn().Str("job", job.name).Str("sessionId", job.sessionID).Msg("Mirror queue full, dropping write")
	}
}

// Snapshot mirrors a game snapshot.
func (m *Mirror) Snapshot(sessionID string, snap conquest.Snapshot) {
	if m.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("Failed to marshal snapshot")
		return
	}
	m.enqueue(mirrorJob{name: "snapshot", sessionID: sessionID, run: func(ctx context.Context) error {
		return m.cache.SetSnapshot(ctx, sessionID, data)
	}})
}

// Roster mirrors a session's membership.
func (m *Mirror) Roster(r model.Roster) {
	if m.cache == nil {
		return
	}
	m.enqueue(mirrorJob{name: "roster", sessionID: r.SessionID, run: func(ctx context.Context) error {
		return m.cache.SetRoster(ctx, r)
	}})
}

// Event appends to the audit log.
func (m *Mirror) Event(ev model.SessionEvent) {
	if m.audit == nil {
		return
	}
	m.enqueue(mirrorJob{name: ev.Type, sessionID: ev.SessionID, run: func(ctx context.Context) error {
		return m.audit.Append(ctx, ev)
	}})
}

// Drop removes a finished session's cached state.
func (m *Mirror) Drop(sessionID string) {
	if m.cache == nil {
		return
	}
	m.enqueue(mirrorJob{name: "drop", sessionID: sessionID, run: func(ctx context.Context) error {
		return m.cache.DeleteSession(ctx, sessionID)
	}})
}

// Close stops accepting work and waits for queued writes to drain.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.jobs)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
