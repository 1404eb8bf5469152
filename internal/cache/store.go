package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"TrendSignal/internal/model"
)

// Store keeps the latest series snapshot per cache key.
type Store interface {
	// Get returns the entry for key. found is false when no entry exists.
	Get(ctx context.Context, key model.CacheKey) (entry model.CacheEntry, found bool, err error)
	// Put stores series unless a newer snapshot already exists for key.
	Put(ctx context.Context, key model.CacheKey, series *model.TimeSeries, fetchedAt time.Time) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string `yaml:"backend" envconfig:"CACHE_BACKEND"`
	SQLitePath string `yaml:"sqlite_path" envconfig:"CACHE_SQLITE_PATH"`

	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" envconfig:"REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" envconfig:"REDIS_PREFIX"`
}

// Open builds the backend named in opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "sqlite":
		path := opts.SQLitePath
		if path == "" {
			path = "data/cache.db"
		}
		return NewSQLiteStore(path)
	case "redis":
		return NewRedisStore(ctx, RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			Prefix:   opts.RedisPrefix,
		})
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}

func unavailable(op string, key model.CacheKey, err error) error {
	return fmt.Errorf("%w: %s %s: %w", model.ErrCacheUnavailable, op, key, err)
}
