package terminal

import (
	"context"
	"fmt"
	"sync"
)

// Backend selects how sessions are created.
const (
	BackendPTY = "pty"
	BackendSSH = "ssh"
)

// Factory opens a new session.
type Factory func(Options) (Session, error)

// Manager creates and tracks live sessions.
type Manager struct {
	create Factory

	sessions sync.Map // map[string]Session
}

// NewManager creates a manager for the configured backend.
func NewManager(backend string, sshCfg SSHConfig) *Manager {
	switch backend {
	case BackendSSH:
		return NewManagerWithFactory(func(opts Options) (Session, error) {
			return NewSSH(sshCfg, opts)
		})
	case BackendPTY, "":
		return NewManagerWithFactory(NewPTY)
	default:
		return NewManagerWithFactory(func(Options) (Session, error) {
			return nil, fmt.Errorf("unknown terminal backend: %s", backend)
		})
	}
}

// NewManagerWithFactory creates a manager that opens sessions through the
// given factory. Tests inject fakes here.
func NewManagerWithFactory(factory Factory) *Manager {
	return &Manager{create: factory}
}

// Create opens a new session and tracks it until Remove or CloseAll.
func (m *Manager) Create(opts Options) (Session, error) {
	session, err := m.create(opts)
	if err != nil {
		return nil, err
	}

	m.sessions.Store(session.ID(), session)
	return session, nil
}

// Get returns a tracked session by id.
func (m *Manager) Get(sessionID string) (Session, bool) {
	value, ok := m.sessions.Load(sessionID)
	if !ok {
		return nil, false
	}
	return value.(Session), true
}

// Remove closes a session and stops tracking it.
func (m *Manager) Remove(ctx context.Context, sessionID string) {
	if value, ok := m.sessions.LoadAndDelete(sessionID); ok {
		value.(Session).Close(ctx)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	count := 0
	m.sessions.Range(func(any, any) bool {
		count++
		return true
	})
	return count
}

// CloseAll terminates every tracked session. Called on shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.sessions.Range(func(key, value any) bool {
		value.(Session).Close(ctx)
		m.sessions.Delete(key)
		return true
	})
}
