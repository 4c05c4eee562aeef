package service

import (
	"sync"

	"field-overlay/internal/overlay/renderer"

	"github.com/google/uuid"
)

// ============================================================
// Session Manager
// ============================================================

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session // sessionID -> session
	opts     Options
}

func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts.withDefaults(),
	}
}

// Open starts a new editing session for doc.
func (m *Manager) Open(doc renderer.Document, mode Mode) (*Session, error) {
	s, err := NewSession(uuid.NewString(), doc, mode, m.opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = s
	return s, nil
}

func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return s, ok
}

// Close forgets the session and stops its renderer timers.
func (m *Manager) Close(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Close()
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
