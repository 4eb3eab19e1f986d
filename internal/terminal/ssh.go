package terminal

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/agusmakmun/vmwebsocket/internal/shared/id"
)

// sshSession relays a shell on a remote host, typically an EC2 instance.
type sshSession struct {
	id        string
	cols      int
	rows      int
	startedAt time.Time

	client  *ssh.Client
	session *ssh.Session
	stdin   io.WriteCloser
	stdout  io.Reader

	mu     sync.Mutex
	closed bool
}

// NewSSH dials the configured host and opens an interactive shell on it.
func NewSSH(cfg SSHConfig, opts Options) (Session, error) {
	opts.applyDefaults()

	key, err := os.ReadFile(cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key %s: %w", cfg.KeyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SSH key: %w", err)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	port := cfg.Port
	if port == 0 {
		port = 22
	}

	client, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", cfg.Hostname, port), &ssh.ClientConfig{
		User:            cfg.Username,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.Hostname, err)
	}

	session, err := client.NewSession()
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to open SSH session: %w", err)
	}

	if err := session.RequestPty("vt100", opts.Rows, opts.Cols, ssh.TerminalModes{
		ssh.ECHO: 1,
	}); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to request PTY: %w", err)
	}

	stdin, err := session.StdinPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := session.Shell(); err != nil {
		session.Close()
		client.Close()
		return nil, fmt.Errorf("failed to start remote shell: %w", err)
	}

	return &sshSession{
		id:        id.NewSessionID(),
		cols:      opts.Cols,
		rows:      opts.Rows,
		startedAt: time.Now(),
		client:    client,
		session:   session,
		stdin:     stdin,
		stdout:    stdout,
	}, nil
}

func (s *sshSession) ID() string { return s.id }

func (s *sshSession) Write(_ context.Context, input []byte) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if _, err := s.stdin.Write(input); err != nil {
		return fmt.Errorf("failed to write to remote shell: %w", err)
	}
	return nil
}

func (s *sshSession) Read(_ context.Context, p []byte) (int, error) {
	return s.stdout.Read(p)
}

func (s *sshSession) Resize(_ context.Context, cols, rows int) error {
	if s.isClosed() {
		return ErrSessionClosed
	}
	if err := s.session.WindowChange(rows, cols); err != nil {
		return fmt.Errorf("failed to resize remote terminal: %w", err)
	}
	s.mu.Lock()
	s.cols, s.rows = cols, rows
	s.mu.Unlock()
	return nil
}

func (s *sshSession) Close(context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.session.Close()
	return s.client.Close()
}

func (s *sshSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
