package view

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"sweepwatch/domain/core"
	"sweepwatch/ports"
)

// Manager owns the live sessions: one ViewState per operator, created on
// demand, torn down when the session ends. Nothing persists across sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	open         ports.SourceOpener
	sink         ports.RenderSink
	refreshEvery time.Duration
	log          *zap.SugaredLogger
}

// NewManager creates a session manager.
func NewManager(open ports.SourceOpener, sink ports.RenderSink, refreshEvery time.Duration, log *zap.SugaredLogger) *Manager {
	return &Manager{
		sessions:     make(map[string]*Session),
		open:         open,
		sink:         sink,
		refreshEvery: refreshEvery,
		log:          log,
	}
}

// Create starts a new session, optionally connecting to a source path.
func (m *Manager) Create(sourcePath string) (*Session, error) {
	s, err := NewSession(uuid.NewString(), m.open, m.sink, m.refreshEvery, m.log)
	if err != nil {
		return nil, err
	}
	if sourcePath != "" {
		s.SetSource(sourcePath)
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.log.Infow("session created", "session", s.ID, "source", sourcePath)
	return s, nil
}

// Get looks up a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, core.NewNotFoundError("session", id)
	}
	return s, nil
}

// Delete tears down a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return core.NewNotFoundError("session", id)
	}
	s.Close()
	m.log.Infow("session closed", "session", id)
	return nil
}

// Close tears down every session, for server shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
