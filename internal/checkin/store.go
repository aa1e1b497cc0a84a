package checkin

import (
	"context"
	"sync"
	"time"
)

// DefaultSessionTTL is how long an idle session is kept
const DefaultSessionTTL = 30 * time.Minute

type storeEntry struct {
	session  *Session
	lastSeen time.Time
}

// Store keeps sessions by token until they sit idle past the TTL
type Store struct {
	mu       sync.Mutex
	sessions map[string]*storeEntry
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a Store. A non-positive ttl means DefaultSessionTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Store{
		sessions: make(map[string]*storeEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// SetClock replaces the time source, for tests
func (st *Store) SetClock(now func() time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.now = now
}

// Put adds a session
func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.Token()] = &storeEntry{session: s, lastSeen: st.now()}
}

// Get returns a live session and marks it as seen
func (st *Store) Get(token string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[token]
	if !ok {
		return nil, false
	}
	now := st.now()
	if now.Sub(e.lastSeen) > st.ttl {
		delete(st.sessions, token)
		e.session.Close()
		return nil, false
	}
	e.lastSeen = now
	return e.session, true
}

// Delete closes and removes a session
func (st *Store) Delete(token string) {
	st.mu.Lock()
	e, ok := st.sessions[token]
	delete(st.sessions, token)
	st.mu.Unlock()
	if ok {
		e.session.Close()
	}
}

// Len returns the number of stored sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep closes and removes expired sessions, returning how many
func (st *Store) Sweep() int {
	st.mu.Lock()
	now := st.now()
	var expired []*Session
	for token, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.ttl {
			expired = append(expired, e.session)
			delete(st.sessions, token)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done
func (st *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}
