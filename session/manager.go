package session

import (
	"log/slog"
	"sync"
	"time"
)

// Manager is the session registry. Lookups create sessions on demand;
// idle sessions are reclaimed by Prune.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	baselineConfidence int
	logger             *slog.Logger
}

// NewManager creates an empty registry. New sessions start at
// baselineConfidence.
func NewManager(baselineConfidence int, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		sessions:           make(map[string]*Session),
		baselineConfidence: baselineConfidence,
		logger:             logger,
	}
}

// GetOrCreate returns the session for id, creating it if absent.
func (m *Manager) GetOrCreate(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		return s, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the write lock; another caller may have won
	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	s, err := New(id, m.baselineConfidence)
	if err != nil {
		return nil, err
	}
	m.sessions[id] = s
	m.logger.Info("session created", "session_id", id)
	return s, nil
}

// Get returns the session for id without creating it.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Remove deletes a session. Returns true if it existed.
func (m *Manager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.logger.Info("session removed", "session_id", id)
	}
	return ok
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Prune removes sessions idle longer than maxIdle and returns how many
// were reclaimed.
func (m *Manager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			delete(m.sessions, id)
			pruned++
		}
	}
	if pruned > 0 {
		m.logger.Info("idle sessions pruned", "count", pruned)
	}
	return pruned
}
