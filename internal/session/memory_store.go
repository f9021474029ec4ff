package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sinzn/dbDrive/internal/domain"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) Create(_ context.Context, s Session) (string, error) {
	if s.UserID == 0 {
		return "", fmt.Errorf("session: missing user id")
	}
	token, err := GenerateID()
	if err != nil {
		return "", err
	}
	s.Token = token

	m.mu.Lock()
	m.sessions[token] = s
	m.mu.Unlock()
	return token, nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, token)
		return nil, domain.ErrUnauthenticated
	}
	return &s, nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) PurgeExpired(_ context.Context) int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for token, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// Len reports the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Purger = (*MemoryStore)(nil)
)
