package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"cv-screener/internal/screening"
)

const DefaultSessionTTL = 2 * time.Hour

// SessionStore keeps one screening.Session per reviewer, dropped after ttl of inactivity.
type SessionStore struct {
	mu         sync.Mutex
	entries    map[string]*sessionEntry
	ttl        time.Duration
	newSession func() *screening.Session
	now        func() time.Time
}

type sessionEntry struct {
	session  *screening.Session
	lastSeen time.Time
}

func NewSessionStore(ttl time.Duration, newSession func() *screening.Session) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionStore{
		entries:    make(map[string]*sessionEntry),
		ttl:        ttl,
		newSession: newSession,
		now:        time.Now,
	}
}

func (s *SessionStore) Create() (string, *screening.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	session := s.newSession()
	s.entries[id] = &sessionEntry{session: session, lastSeen: s.now()}
	return id, session
}

// Get returns a live session and refreshes its expiry.
func (s *SessionStore) Get(id string) (*screening.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if now.Sub(entry.lastSeen) > s.ttl {
		delete(s.entries, id)
		return nil, false
	}
	entry.lastSeen = now
	return entry.session, true
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CleanExpired removes expired sessions and returns how many were dropped.
func (s *SessionStore) CleanExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, entry := range s.entries {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// RunJanitor calls CleanExpired every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, interval time.Duration, onClean func(removed int)) {
	if interval <= 0 {
		interval = s.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.CleanExpired(); n > 0 && onClean != nil {
				onClean(n)
			}
		}
	}
}
