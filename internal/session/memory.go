package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. It backs STORE_DRIVER=memory and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
	routes   map[int64]int64
	now      func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[int64]*Session),
		routes:   make(map[int64]int64),
		now:      time.Now,
	}
}

// Load returns a copy of the stored session or a fresh idle one.
func (m *MemoryStore) Load(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Clone(), nil
	}
	return New(userID), nil
}

// Save stores a copy of s.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.UpdatedAt = m.now().UTC()
	c := s.Clone()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.UserID] = c
	return nil
}

// ReplyTarget returns the admin's active target or 0.
func (m *MemoryStore) ReplyTarget(_ context.Context, adminID int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.routes[adminID], nil
}

// SetReplyTarget replaces the admin's active target.
func (m *MemoryStore) SetReplyTarget(_ context.Context, adminID, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[adminID] = userID
	return nil
}

// ClearReplyTarget removes the admin's active target.
func (m *MemoryStore) ClearReplyTarget(_ context.Context, adminID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.routes[adminID]
	delete(m.routes, adminID)
	return prev, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }
