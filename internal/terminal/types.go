package terminal

import (
	"context"
	"errors"
	"time"
)

// ErrSessionClosed is returned by operations on a terminated session.
var ErrSessionClosed = errors.New("terminal: session closed")

// Session is one interactive terminal attached to a shell or remote host.
type Session interface {
	// ID returns the session identifier.
	ID() string

	// Write sends input to the terminal.
	Write(ctx context.Context, input []byte) error

	// Read blocks until terminal output is available and fills p.
	// Returns io.EOF after the session ends.
	Read(ctx context.Context, p []byte) (int, error)

	// Resize changes the terminal dimensions.
	Resize(ctx context.Context, cols, rows int) error

	// Close terminates the session. Safe to call more than once.
	Close(ctx context.Context) error
}

// Options configures a new session.
type Options struct {
	// Shell to spawn for local sessions. Defaults to $SHELL, then /bin/bash.
	Shell string

	// WorkingDir for local sessions. Defaults to $HOME, then /tmp.
	WorkingDir string

	// Terminal dimensions. Default 80x24.
	Cols int
	Rows int

	// Env holds extra environment variables for local sessions.
	Env map[string]string
}

// SSHConfig configures the remote backend.
type SSHConfig struct {
	Hostname string
	Username string
	KeyPath  string
	Port     int
	Timeout  time.Duration
}

// SessionInfo describes a live session.
type SessionInfo struct {
	ID        string
	Backend   string
	Cols      int
	Rows      int
	StartedAt time.Time
}

func (o *Options) applyDefaults() {
	if o.Cols <= 0 {
		o.Cols = 80
	}
	if o.Rows <= 0 {
		o.Rows = 24
	}
}
