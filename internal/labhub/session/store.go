package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cvelabhub/labhub/internal/common/apperrors"
)

// Store tracks the sessions known to this gateway. Authority over the VMs
// lives upstream; the store only holds the lifecycle view the gateway
// enforces. Implementations must be safe for concurrent use.
type Store interface {
	Get(id uuid.UUID) (*Session, apperrors.Error)
	Put(s *Session) apperrors.Error
	Delete(id uuid.UUID) apperrors.Error
	List() []*Session
}

// memoryStore is the in-process Store. Sessions do not need to survive a
// gateway restart: the backend re-reports active labs on demand.
type memoryStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() Store {
	return &memoryStore{
		sessions: make(map[uuid.UUID]*Session),
	}
}

func (m *memoryStore) Get(id uuid.UUID) (*Session, apperrors.Error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) Put(s *Session) apperrors.Error {
	if s == nil || s.ID == uuid.Nil {
		return ErrInvalidRequest.Msg("session id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memoryStore) Delete(id uuid.UUID) apperrors.Error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		cp := *s
		out = append(out, &cp)
	}
	return out
}
