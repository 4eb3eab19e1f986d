// Package id provides ULID generation for terminal sessions and websocket
// connections.
//
// ULIDs are lexicographically sortable, so session and connection ids double
// as a rough timeline in logs. Prefixes (sess_*, conn_*) keep log lines
// readable and prevent the two id kinds from being mixed up.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	SessionPrefix    = "sess"
	ConnectionPrefix = "conn"
)

// Generator generates prefixed ULIDs.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator backed by crypto/rand.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator(rand.Reader)
	})
	return defaultGenerator
}

// NewGenerator creates a generator with the given entropy source. Tests can
// pass a deterministic reader.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID string.
func (g *Generator) Generate() string {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateWithPrefix creates a prefixed ULID string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate())
}

// NewSessionID generates an id for a terminal session.
func NewSessionID() string {
	return Default().GenerateWithPrefix(SessionPrefix)
}

// NewConnectionID generates an id for a websocket connection.
func NewConnectionID() string {
	return Default().GenerateWithPrefix(ConnectionPrefix)
}

// IsValid checks whether the ULID part of a prefixed id parses.
func IsValid(id string) bool {
	if i := strings.LastIndexByte(id, '_'); i >= 0 {
		id = id[i+1:]
	}
	_, err := ulid.Parse(id)
	return err == nil
}
