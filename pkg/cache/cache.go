// Package cache backs PlannerCache (see planner.go) with a small
// key/TTL/value store, either in-process or Redis, behind one interface
// so a memoized planner result looks the same to callers regardless of
// which backend is configured.
package cache

import (
	"context"
	"errors"
	"time"

	"saginctl/pkg/config"
)

// Backend names accepted by New/FromConfig.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Standard errors returned by cache operations.
var (
	// ErrKeyNotFound is returned when a requested key does not exist in the cache.
	ErrKeyNotFound = errors.New("key not found")
	// ErrCacheClosed is returned when an operation is attempted on a closed cache.
	ErrCacheClosed = errors.New("cache is closed")
)

// Cache is the key/value store PlannerCache is built on. It is scoped to
// the operations a planner-result cache actually needs: point lookups,
// writes with a TTL, and bulk invalidation by key pattern when the
// topology changes under a whole keyspace of cached plans at once.
type Cache interface {
	// Get retrieves the value associated with the given key.
	// Returns ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores a value for the given key with a specified time-to-live (TTL).
	// If the key already exists, its value and TTL are updated.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key-value pair from the cache.
	// Returns nil if the key was not found or successfully deleted.
	Delete(ctx context.Context, key string) error
	// DeleteByPattern removes all keys matching a given glob pattern.
	// Used by PlannerCache.InvalidateAll to drop every cached plan at once.
	DeleteByPattern(ctx context.Context, pattern string) (int64, error)
	// Close shuts down the cache and releases any underlying resources.
	Close() error
}

// Options configures a Cache backend.
type Options struct {
	Backend    string        // BackendMemory or BackendRedis.
	DefaultTTL time.Duration // default TTL when a Set call passes ttl<=0.

	// Memory backend options.
	MaxEntries      int           // entry cap before LRU eviction kicks in.
	CleanupInterval time.Duration // how often expired entries are swept.

	// Redis backend options.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int
}

// DefaultOptions returns sensible defaults for a standalone in-memory cache.
func DefaultOptions() *Options {
	return &Options{
		Backend:         BackendMemory,
		DefaultTTL:      5 * time.Minute,
		MaxEntries:      100000,
		CleanupInterval: 1 * time.Minute,
		RedisAddr:       "localhost:6379",
		RedisDB:         0,
		RedisPoolSize:   10,
	}
}

// FromConfig builds Options from the process's cache configuration
// (spec §4.8's planner-cache knobs: driver, address, TTL, entry cap).
func FromConfig(cfg *config.CacheConfig) *Options {
	return &Options{
		Backend:       cfg.Driver,
		DefaultTTL:    cfg.DefaultTTL,
		MaxEntries:    cfg.MaxEntries,
		RedisAddr:     cfg.Address(),
		RedisPassword: cfg.Password,
		RedisDB:       cfg.DB,
		RedisPoolSize: 10,
	}
}

// New builds a Cache for the backend named in opts, falling back to the
// in-memory backend for an empty or unrecognised name so a misconfigured
// driver degrades the planner cache instead of failing startup.
func New(opts *Options) (Cache, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	switch opts.Backend {
	case BackendRedis:
		return NewRedisCache(opts)
	default:
		return NewMemoryCache(opts), nil
	}
}

// MustNew builds a Cache or panics.
func MustNew(opts *Options) Cache {
	c, err := New(opts)
	if err != nil {
		panic(err)
	}
	return c
}
