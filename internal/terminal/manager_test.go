package terminal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	id string

	mu     sync.Mutex
	closed bool
}

func (s *stubSession) ID() string                        { return s.id }
func (s *stubSession) Write(context.Context, []byte) error { return nil }
func (s *stubSession) Read(context.Context, []byte) (int, error) {
	return 0, ErrSessionClosed
}
func (s *stubSession) Resize(context.Context, int, int) error { return nil }
func (s *stubSession) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *stubSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func stubFactory() (Factory, *[]*stubSession) {
	var created []*stubSession
	factory := func(Options) (Session, error) {
		s := &stubSession{id: fmt.Sprintf("sess_%02d", len(created))}
		created = append(created, s)
		return s, nil
	}
	return factory, &created
}

func TestManagerCreateTracksSession(t *testing.T) {
	factory, created := stubFactory()
	m := NewManagerWithFactory(factory)

	session, err := m.Create(Options{})
	require.NoError(t, err)
	require.Len(t, *created, 1)

	got, ok := m.Get(session.ID())
	assert.True(t, ok)
	assert.Equal(t, session.ID(), got.ID())
	assert.Equal(t, 1, m.Count())
}

func TestManagerCreatePropagatesFactoryError(t *testing.T) {
	wantErr := errors.New("no pty available")
	m := NewManagerWithFactory(func(Options) (Session, error) {
		return nil, wantErr
	})

	_, err := m.Create(Options{})
	assert.Same(t, wantErr, err)
	assert.Equal(t, 0, m.Count())
}

func TestManagerRemoveClosesSession(t *testing.T) {
	factory, created := stubFactory()
	m := NewManagerWithFactory(factory)

	session, err := m.Create(Options{})
	require.NoError(t, err)

	m.Remove(context.Background(), session.ID())
	assert.True(t, (*created)[0].isClosed())
	_, ok := m.Get(session.ID())
	assert.False(t, ok)

	// Removing twice is a no-op.
	m.Remove(context.Background(), session.ID())
}

func TestManagerCloseAll(t *testing.T) {
	factory, created := stubFactory()
	m := NewManagerWithFactory(factory)

	for i := 0; i < 3; i++ {
		_, err := m.Create(Options{})
		require.NoError(t, err)
	}
	require.Equal(t, 3, m.Count())

	m.CloseAll(context.Background())
	assert.Equal(t, 0, m.Count())
	for _, s := range *created {
		assert.True(t, s.isClosed())
	}
}

func TestManagerUnknownBackend(t *testing.T) {
	m := NewManager("telnet", SSHConfig{})
	_, err := m.Create(Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telnet")
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	opts.applyDefaults()
	assert.Equal(t, 80, opts.Cols)
	assert.Equal(t, 24, opts.Rows)

	opts = Options{Cols: 120, Rows: 40}
	opts.applyDefaults()
	assert.Equal(t, 120, opts.Cols)
	assert.Equal(t, 40, opts.Rows)
}
