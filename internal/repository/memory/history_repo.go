package memory

import (
	"context"
	"sync"
	"time"

	"lrt-predictor/internal/domain/entity"
)

type session struct {
	entries  []entity.HistoryEntry
	lastSeen time.Time
}

// HistoryRepo keeps each session's history in process memory. Only Append
// creates a session. A session idle for longer than TTL reads as empty and
// is dropped on the next sweep; a zero TTL never expires.
type HistoryRepo struct {
	mu        sync.Mutex
	sessions  map[string]*session
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewHistoryRepo(ttl time.Duration) *HistoryRepo {
	return &HistoryRepo{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (r *HistoryRepo) Append(_ context.Context, sessionID string, entry entity.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.touch(sessionID)
	s.entries = append(s.entries, entry)
	return nil
}

// List returns a copy of the session's entries in submission order.
func (r *HistoryRepo) List(_ context.Context, sessionID string) ([]entity.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.lookup(sessionID)
	if s == nil {
		return []entity.HistoryEntry{}, nil
	}
	out := make([]entity.HistoryEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (r *HistoryRepo) Clear(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweep(r.now())
	delete(r.sessions, sessionID)
	return nil
}

// Sessions reports how many sessions are currently held.
func (r *HistoryRepo) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// touch returns the live session for id, creating it. mu must be held.
func (r *HistoryRepo) touch(sessionID string) *session {
	s := r.lookup(sessionID)
	if s == nil {
		s = &session{lastSeen: r.now()}
		r.sessions[sessionID] = s
	}
	return s
}

// lookup returns the live session for id or nil, refreshing its lastSeen.
// mu must be held.
func (r *HistoryRepo) lookup(sessionID string) *session {
	now := r.now()
	r.sweep(now)

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil
	}
	if r.expired(s, now) {
		delete(r.sessions, sessionID)
		return nil
	}
	s.lastSeen = now
	return s
}

func (r *HistoryRepo) expired(s *session, now time.Time) bool {
	return r.ttl > 0 && now.Sub(s.lastSeen) > r.ttl
}

func (r *HistoryRepo) sweep(now time.Time) {
	if r.ttl <= 0 || now.Sub(r.lastSweep) < r.ttl/2 {
		return
	}
	r.lastSweep = now
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
		}
	}
}
