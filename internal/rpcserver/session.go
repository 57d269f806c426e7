package rpcserver

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autofinance/control-plane/internal/domain"
)

// SessionRegistry is the synchronized map keyed by session_id.
// Idle sessions are reaped by a background ticker.
type SessionRegistry struct {
	mu         sync.RWMutex
	sessions   map[string]*domain.Session
	idleExpiry time.Duration
	stop       chan struct{}
}

// NewSessionRegistry builds a registry that reaps sessions idle longer than
// idleExpiry. idleExpiry is floored at 10 minutes.
func NewSessionRegistry(idleExpiry time.Duration) *SessionRegistry {
	if idleExpiry < 10*time.Minute {
		idleExpiry = 10 * time.Minute
	}
	r := &SessionRegistry{
		sessions:   make(map[string]*domain.Session),
		idleExpiry: idleExpiry,
		stop:       make(chan struct{}),
	}
	go r.reapLoop()
	return r
}

// Create mints a new opaque session token and records it.
func (r *SessionRegistry) Create(protocolVersion string, clientInfo map[string]any) *domain.Session {
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:       uuid.New().String(),
		ClientInfo:      clientInfo,
		ProtocolVersion: protocolVersion,
		CreatedAt:       now,
		LastTouched:     now,
	}
	r.mu.Lock()
	r.sessions[sess.SessionID] = sess
	r.mu.Unlock()
	return sess
}

// Touch validates sessionID exists and refreshes its last-touched time.
// Returns false if the session is unknown ("unknown or missing
// session_id is an error").
func (r *SessionRegistry) Touch(sessionID string) bool {
	if sessionID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	sess.LastTouched = time.Now().UTC()
	return true
}

// Close stops the reaper goroutine.
func (r *SessionRegistry) Close() {
	close(r.stop)
}

func (r *SessionRegistry) reapLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.reapOnce()
		}
	}
}

func (r *SessionRegistry) reapOnce() {
	cutoff := time.Now().UTC().Add(-r.idleExpiry)
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sess := range r.sessions {
		if sess.LastTouched.Before(cutoff) {
			delete(r.sessions, id)
		}
	}
}
