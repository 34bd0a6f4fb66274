package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Package storage keeps host component state across applies.

// Store holds one state map per key.
type Store interface {
	Close() error
	Load(key string) (map[string]any, error)
	Save(key string, state map[string]any) error
}

// Options controls concrete store implementations.
type Options struct {
	OpenTimeout time.Duration
}

const defaultOpenTimeout = time.Second

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "memory":
		return newMemoryStore(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	return opts
}

type memoryStore struct {
	mu     sync.RWMutex
	states map[string]map[string]any
}

func newMemoryStore() *memoryStore {
	return &memoryStore{states: make(map[string]map[string]any)}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Load(key string) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyState(m.states[key]), nil
}

func (m *memoryStore) Save(key string, state map[string]any) error {
	m.mu.Lock()
	m.states[key] = copyState(state)
	m.mu.Unlock()
	return nil
}

func copyState(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
