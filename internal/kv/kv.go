// Package kv provides the local key-value store that holds the persisted
// device snapshot.
//
// Three backends are available:
//
//   - sqlite: a single kv table in a SQLite database (default)
//   - file:   one file per key, replaced atomically via rename
//   - memory: process-local map, used by tests
//
// Every Set replaces the whole value for a key in one step, so readers never
// observe a partially written value.
package kv

import (
	"context"
	"errors"
	"fmt"
)

// Backend names accepted by Open
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

var (
	// ErrNotFound is returned by Get when the key has no value
	ErrNotFound = errors.New("kv: key not found")

	// ErrClosed is returned when using a store after Close
	ErrClosed = errors.New("kv: store closed")

	// ErrUnknownBackend is returned by Open for an unsupported backend name
	ErrUnknownBackend = errors.New("kv: unknown backend")
)

// Store is a minimal byte-oriented key-value store
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Config selects and configures a backend
type Config struct {
	Backend     string
	Path        string
	BusyTimeout int // seconds, sqlite only
}

// Open creates the store described by cfg
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendSQLite, "":
		return OpenSQLite(cfg.Path, cfg.BusyTimeout)
	case BackendFile:
		return OpenFile(cfg.Path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
