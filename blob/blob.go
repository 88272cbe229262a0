// Package blob defines the object store the metadata stores persist to,
// along with HTTP, SQLite and Redis backends.
package blob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a key does not exist in the object store.
var ErrNotFound = errors.New("blob: not found")

// Object describes a stored blob.
type Object struct {
	Key  string
	URL  string
	Size int
}

// Store reads and writes whole objects by key. Implementations must return
// ErrNotFound (possibly wrapped) for missing keys.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) (Object, error)
	Delete(ctx context.Context, key string) error
}

// Lister is implemented by backends that can enumerate their keys.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Pinger is implemented by backends that hold a connection worth checking at
// startup.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend names accepted by Open.
const (
	BackendHTTP   = "http"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config selects and configures a backend.
type Config struct {
	Backend string

	// http
	Token   string
	BaseURL string
	Timeout time.Duration

	// sqlite
	SQLitePath string

	// redis
	RedisURL    string
	RedisPrefix string
}

// Open builds the configured backend. A nil Store with a nil error means the
// object store is not configured (no credential, path or URL), which callers
// treat as a normal state and fall back to memory.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendHTTP:
		if cfg.Token == "" {
			return nil, nil
		}
		return NewHTTPStore(cfg.BaseURL, cfg.Token, cfg.Timeout), nil
	case BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, nil
		}
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, nil
		}
		s, err := NewRedisStore(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("blob: unknown backend %q", cfg.Backend)
	}
}

// Close closes s if the backend holds resources.
func Close(s Store) error {
	if c, ok := s.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
