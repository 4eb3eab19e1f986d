package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is the capability interface every cache backend implements.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Config defines cache sizing.
type Config struct {
	// Size is the maximum number of entries kept.
	Size int
	// TTL is how long an entry stays valid. Zero disables expiry.
	TTL time.Duration
}

// DefaultConfig returns the cache configuration used by the demo endpoints.
func DefaultConfig() Config {
	return Config{Size: 1024, TTL: 30 * time.Second}
}

// LRU is an in-process Store backed by an expiring LRU.
type LRU struct {
	entries *expirable.LRU[string, string]
}

// NewLRU creates a store with the given sizing.
func NewLRU(cfg Config) *LRU {
	if cfg.Size <= 0 {
		cfg.Size = DefaultConfig().Size
	}
	return &LRU{
		entries: expirable.NewLRU[string, string](cfg.Size, nil, cfg.TTL),
	}
}

// Get returns the value stored under key.
func (s *LRU) Get(_ context.Context, key string) (string, error) {
	value, ok := s.entries.Get(key)
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under key.
func (s *LRU) Set(_ context.Context, key, value string) error {
	s.entries.Add(key, value)
	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *LRU) Delete(_ context.Context, key string) error {
	s.entries.Remove(key)
	return nil
}
