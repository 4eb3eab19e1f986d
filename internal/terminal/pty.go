package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/agusmakmun/vmwebsocket/internal/shared/id"
)

// ptySession is a local shell attached to a pseudo-terminal.
type ptySession struct {
	id        string
	cols      int
	rows      int
	startedAt time.Time

	cmd  *exec.Cmd
	ptmx *os.File

	mu     sync.Mutex
	closed bool
}

// NewPTY spawns a local shell session.
func NewPTY(opts Options) (Session, error) {
	opts.applyDefaults()

	shell := opts.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
		if shell == "" {
			shell = "/bin/bash"
		}
	}
	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir = os.Getenv("HOME")
		if workingDir == "" {
			workingDir = "/tmp"
		}
	}

	cmd := exec.Command(shell)
	cmd.Dir = workingDir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	for key, value := range opts.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", key, value))
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(opts.Rows),
		Cols: uint16(opts.Cols),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start PTY: %w", err)
	}

	s := &ptySession{
		id:        id.NewSessionID(),
		cols:      opts.Cols,
		rows:      opts.Rows,
		startedAt: time.Now(),
		cmd:       cmd,
		ptmx:      ptmx,
	}

	// Reap the shell once it exits so Read observes EOF promptly.
	go func() {
		cmd.Wait()
		s.Close(context.Background())
	}()

	return s, nil
}

func (s *ptySession) ID() string { return s.id }

func (s *ptySession) Write(_ context.Context, input []byte) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if _, err := s.ptmx.Write(input); err != nil {
		return fmt.Errorf("failed to write to PTY: %w", err)
	}
	return nil
}

func (s *ptySession) Read(_ context.Context, p []byte) (int, error) {
	return s.ptmx.Read(p)
}

func (s *ptySession) Resize(_ context.Context, cols, rows int) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := pty.Setsize(s.ptmx, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)}); err != nil {
		return fmt.Errorf("failed to resize PTY: %w", err)
	}
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
	return nil
}

func (s *ptySession) Close(context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	return s.ptmx.Close()
}

func (s *ptySession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Info describes the session.
func (s *ptySession) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ID:        s.id,
		Backend:   "pty",
		Cols:      s.cols,
		Rows:      s.rows,
		StartedAt: s.startedAt,
	}
}
