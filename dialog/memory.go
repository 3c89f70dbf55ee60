package dialog

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Expired sessions are invisible
// to Get and are removed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[userID]
	if !ok {
		return nil, nil
	}
	if m.expired(session) {
		delete(m.sessions, userID)
		return nil, nil
	}

	return &session, nil
}

func (m *MemoryStore) Save(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	s.UpdatedAt = m.now()
	m.sessions[s.UserID] = s

	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)

	return nil
}

// Sweep drops expired sessions and returns how many were removed
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, session := range m.sessions {
		if m.expired(session) {
			delete(m.sessions, userID)
			removed++
		}
	}

	if removed > 0 {
		slog.Debug("dialog: Expired sessions removed", "count", removed)
	}

	return removed
}

func (m *MemoryStore) expired(s Session) bool {
	return m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl
}
