package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"TrendSignal/internal/model"
)

const maxTxRetries = 5

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore keeps one hash per cache key with fetched_at and payload fields.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "trendsignal:series:"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}, nil
}

func (r *RedisStore) redisKey(key model.CacheKey) string { return r.prefix + key.String() }

func (r *RedisStore) Get(ctx context.Context, key model.CacheKey) (model.CacheEntry, bool, error) {
	fields, err := r.rdb.HGetAll(ctx, r.redisKey(key)).Result()
	if err != nil {
		return model.CacheEntry{}, false, unavailable("redis get", key, err)
	}
	if len(fields) == 0 {
		return model.CacheEntry{}, false, nil
	}

	ns, err := strconv.ParseInt(fields["fetched_at"], 10, 64)
	if err != nil {
		return model.CacheEntry{}, false, unavailable("redis get", key, fmt.Errorf("fetched_at: %w", err))
	}
	series, _, err := decodeSeries([]byte(fields["payload"]))
	if err != nil {
		return model.CacheEntry{}, false, unavailable("redis get", key, err)
	}
	return model.CacheEntry{
		Key:        key,
		Series:     series,
		FetchedAt:  time.Unix(0, ns).UTC(),
		Provenance: model.ProvenanceCache,
	}, true, nil
}

// Put writes inside WATCH/MULTI so a concurrent newer snapshot is never overwritten.
func (r *RedisStore) Put(ctx context.Context, key model.CacheKey, series *model.TimeSeries, fetchedAt time.Time) error {
	data, err := encodeSeries(series, fetchedAt)
	if err != nil {
		return unavailable("redis put", key, err)
	}
	k := r.redisKey(key)
	ns := fetchedAt.UnixNano()

	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, k, "fetched_at").Int64()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		case ns < cur:
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, k, "fetched_at", ns, "payload", data)
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err = r.rdb.Watch(ctx, txf, k)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return unavailable("redis put", key, err)
	}
	return nil
}

func (r *RedisStore) Close() error { return r.rdb.Close() }
