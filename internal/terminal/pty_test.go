package terminal

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPTY(t *testing.T) Session {
	t.Helper()

	session, err := NewPTY(Options{Shell: "/bin/sh", WorkingDir: "/tmp"})
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	t.Cleanup(func() {
		session.Close(context.Background())
	})
	return session
}

// readUntil reads output until want appears or the deadline passes.
func readUntil(t *testing.T, session Session, want string) string {
	t.Helper()

	var output strings.Builder
	deadline := time.Now().Add(10 * time.Second)
	buf := make([]byte, 4096)
	for time.Now().Before(deadline) {
		n, err := session.Read(context.Background(), buf)
		if n > 0 {
			output.Write(buf[:n])
		}
		if strings.Contains(output.String(), want) {
			return output.String()
		}
		if err != nil {
			break
		}
	}
	t.Fatalf("%q never appeared in terminal output:\n%s", want, output.String())
	return ""
}

func TestPTYEchoRoundTrip(t *testing.T) {
	session := newTestPTY(t)
	ctx := context.Background()

	require.NoError(t, session.Write(ctx, []byte("echo terminal-ok\n")))
	output := readUntil(t, session, "terminal-ok")
	assert.Contains(t, output, "terminal-ok")
}

func TestPTYSessionIDFormat(t *testing.T) {
	session := newTestPTY(t)
	assert.True(t, strings.HasPrefix(session.ID(), "sess_"))
}

func TestPTYResize(t *testing.T) {
	session := newTestPTY(t)
	require.NoError(t, session.Resize(context.Background(), 132, 43))

	info := session.(*ptySession).Info()
	assert.Equal(t, 132, info.Cols)
	assert.Equal(t, 43, info.Rows)
	assert.Equal(t, "pty", info.Backend)
}

func TestPTYClosedSessionRejectsWrites(t *testing.T) {
	session := newTestPTY(t)
	ctx := context.Background()

	require.NoError(t, session.Close(ctx))
	assert.ErrorIs(t, session.Write(ctx, []byte("x")), ErrSessionClosed)
	assert.ErrorIs(t, session.Resize(ctx, 80, 24), ErrSessionClosed)

	// Closing twice is safe.
	assert.NoError(t, session.Close(ctx))
}

func TestPTYShellExitEndsStream(t *testing.T) {
	session := newTestPTY(t)
	ctx := context.Background()

	require.NoError(t, session.Write(ctx, []byte("exit\n")))

	buf := make([]byte, 4096)
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := session.Read(ctx, buf); err != nil {
			return
		}
	}
	t.Fatal("read never observed the shell exiting")
}
