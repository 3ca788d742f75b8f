package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nawabsahab16/ancestral-ai/internal/domain"
	"github.com/nawabsahab16/ancestral-ai/internal/infra"
)

// Manager keeps sessions in memory, scoped by owner.
type Manager struct {
	orch     *Orchestrator
	previews PreviewBuilder
	logger   infra.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	created  map[string]time.Time
	newID    func() string
	now      func() time.Time
}

func NewManager(orch *Orchestrator, previews PreviewBuilder, logger infra.Logger) *Manager {
	return &Manager{
		orch:     orch,
		previews: previews,
		logger:   logger,
		sessions: make(map[string]*Session),
		created:  make(map[string]time.Time),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Create registers a new idle session for owner.
func (m *Manager) Create(owner domain.Owner) *Session {
	id := m.newID()
	s := NewSession(id, owner, m.orch, m.previews, m.logger)
	m.mu.Lock()
	m.sessions[id] = s
	m.created[id] = m.now()
	m.mu.Unlock()
	return s
}

// Get returns the session if it exists and belongs to owner. Sessions of
// other owners are reported as not found.
func (m *Manager) Get(owner domain.Owner, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || s.owner.UserID != owner.UserID {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(owner domain.Owner, id string) error {
	s, err := m.Get(owner, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, id)
	delete(m.created, id)
	m.mu.Unlock()
	s.Close()
	return nil
}

// Expire drops sessions created before now-ttl and returns how many were removed.
func (m *Manager) Expire(ttl time.Duration) int {
	cutoff := m.now().Add(-ttl)
	var stale []*Session
	m.mu.Lock()
	for id, at := range m.created {
		if at.Before(cutoff) {
			stale = append(stale, m.sessions[id])
			delete(m.sessions, id)
			delete(m.created, id)
		}
	}
	m.mu.Unlock()
	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		m.logger.Info().Int("sessions", len(stale)).Msg("expired sessions")
	}
	return len(stale)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
