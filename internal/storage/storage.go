package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage remembers which jokes were already delivered.

// Store tracks delivered joke IDs.
type Store interface {
	Close() error
	SeenJoke(id int64) (bool, error)
	MarkJoke(id int64) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	JokeTTL         time.Duration
	CleanupInterval time.Duration
	RedisPassword   string
}

const (
	defaultJokeTTL         = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend. addr is the bbolt file path
// or the redis host:port depending on typ.
func NewStore(typ, addr string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(addr) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		store, err := openBolt(addr, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		if strings.TrimSpace(addr) == "" {
			return nil, fmt.Errorf("redis storage requires an address")
		}
		store, err := openRedis(addr, opts)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.JokeTTL <= 0 {
		opts.JokeTTL = defaultJokeTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                 { return nil }
func (noopStore) SeenJoke(int64) (bool, error) { return false, nil }
func (noopStore) MarkJoke(int64) error         { return nil }
