package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/freeeve/conquest/internal/auth"
	"github.com/freeeve/conquest/internal/logger"
	"github.com/freeeve/conquest/internal/model"
	"github.com/freeeve/conquest/internal/repository"
	"github.com/freeeve/conquest/internal/service"
)

// Sessions is the read side of the session manager used by the status API.
type Sessions interface {
	Lookup(sessionID string) (*service.Lobby, bool)
	SessionCount() int
}

// StatusHandler serves health and read-only session views over HTTP.
type StatusHandler struct {
	sessions Sessions
	hub      *Hub
	cache    repository.SnapshotCache // optional
	audit    repository.AuditLog      // optional
}

// NewStatusHandler creates a StatusHandler. cache and audit may be nil.
func NewStatusHandler(sessions Sessions, hub *Hub, cache repository.SnapshotCache, audit repository.AuditLog) *StatusHandler {
	return &StatusHandler{sessions: sessions, hub: hub, cache: cache, audit: audit}
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Sessions    int    `json:"sessions"`
}

// Health handles GET /healthz.
func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Connections: h.hub.ConnectionCount(),
		Sessions:    h.sessions.SessionCount(),
	})
}

// CurrentSession handles GET /api/v1/sessions/current. It returns the game
// snapshot of the session named in the caller's seat token, live from memory
// when the session is running here, otherwise from the Redis mirror.
func (h *StatusHandler) CurrentSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing seat token")
		return
	}
	l := logger.FromContext(r.Context())

	if lobby, ok := h.sessions.Lookup(claims.SessionID); ok {
		snap, err := lobby.Snapshot(r.Context())
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, snap)
			return
		case errors.Is(err, service.ErrNoGame):
			writeError(w, http.StatusNotFound, "no game in progress")
			return
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return
		}
		// The session closed between lookup and query; fall through to the mirror.
	}

	if h.cache == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	data, err := h.cache.GetSnapshot(r.Context(), claims.SessionID)
	if err != nil {
		l.Error().Err(err).Str("sessionId", claims.SessionID).Msg("Snapshot mirror read failed")
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

type eventsResponse struct {
	SessionID string               `json:"session_id"`
	Events    []model.SessionEvent `json:"events"`
}

// SessionEvents handles GET /api/v1/sessions/{id}/events. The seat token must
// belong to the same session.
func (h *StatusHandler) SessionEvents(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing seat token")
		return
	}
	id := r.PathValue("id")
	if id != claims.SessionID {
		writeError(w, http.StatusForbidden, "token is for another session")
		return
	}
	if h.audit == nil {
		writeError(w, http.StatusServiceUnavailable, "audit log disabled")
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	events, err := h.audit.ListBySession(r.Context(), id, limit)
	if err != nil {
		log.Error().Err(err).Str("sessionId", id).Msg("Audit log read failed")
		writeError(w, http.StatusServiceUnavailable, "audit log unavailable")
		return
	}
	if events == nil {
		events = []model.SessionEvent{}
	}
	writeJSON(w, http.StatusOK, eventsResponse{SessionID: id, Events: events})
}
