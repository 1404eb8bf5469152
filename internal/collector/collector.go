package collector

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"TrendSignal/internal/cache"
	"TrendSignal/internal/model"
)

// DefaultFetchTimeout bounds a live fetch that outlives its caller.
const DefaultFetchTimeout = 60 * time.Second

// FetchResult is a series plus where it came from.
type FetchResult struct {
	Series     *model.TimeSeries
	Provenance model.Provenance
	FetchedAt  time.Time
	// Stale is set when a transient live failure was answered from cache.
	Stale       bool
	StaleReason error
}

// Collector serves series from the cache when fresh enough and from the
// provider otherwise, falling back to any cached copy on transient failures.
type Collector struct {
	Fetcher      Fetcher
	Store        cache.Store
	FetchTimeout time.Duration
	Now          func() time.Time

	group singleflight.Group
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, store cache.Store, fetchTimeout time.Duration) *Collector {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}
	return &Collector{Fetcher: fetcher, Store: store, FetchTimeout: fetchTimeout, Now: time.Now}
}

func (c *Collector) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// Fetch returns the series for sym/interval. A cached entry no older than
// maxAge is returned without contacting the provider unless force is set.
func (c *Collector) Fetch(ctx context.Context, sym model.Symbol, interval model.Interval, maxAge time.Duration, force bool) (*FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := model.KeyFor(sym, interval)
	log := slog.With("key", key.String())

	cached, found, err := c.Store.Get(ctx, key)
	if err != nil {
		log.Warn("cache lookup failed, treating as miss", "error", err)
		found = false
	}

	if found && !force {
		age := cached.Age(c.now())
		if age <= maxAge {
			log.Debug("serving fresh cache entry", "age", age)
			return &FetchResult{Series: cached.Series, Provenance: model.ProvenanceCache, FetchedAt: cached.FetchedAt}, nil
		}
	}

	live, err := c.fetchLive(ctx, key, sym, interval)
	if err == nil {
		return &FetchResult{Series: live.series, Provenance: model.ProvenanceLive, FetchedAt: live.fetchedAt}, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	if model.IsTransient(err) && found {
		log.Warn("live fetch failed, serving stale cache entry",
			"age", cached.Age(c.now()), "error", err)
		return &FetchResult{
			Series:      cached.Series,
			Provenance:  model.ProvenanceCache,
			FetchedAt:   cached.FetchedAt,
			Stale:       true,
			StaleReason: err,
		}, nil
	}
	return nil, err
}

type liveResult struct {
	series    *model.TimeSeries
	fetchedAt time.Time
}

// fetchLive coalesces concurrent fetches of one key. The fetch is detached
// from ctx so an abandoned caller still leaves a warm cache behind.
func (c *Collector) fetchLive(ctx context.Context, key model.CacheKey, sym model.Symbol, interval model.Interval) (*liveResult, error) {
	ch := c.group.DoChan(key.String(), func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.FetchTimeout)
		defer cancel()

		start := time.Now()
		series, err := c.Fetcher.FetchSeries(fctx, sym, interval)
		if err != nil {
			slog.Warn("live fetch failed", "provider", c.Fetcher.Name(), "key", key.String(), "error", err)
			return nil, err
		}
		fetchedAt := c.now()
		slog.Info("live fetch succeeded", "provider", c.Fetcher.Name(), "key", key.String(),
			"bars", series.Len(), "took", time.Since(start))

		if err := c.Store.Put(fctx, key, series, fetchedAt); err != nil {
			slog.Warn("cache write failed", "key", key.String(), "error", err)
		}
		return &liveResult{series: series, fetchedAt: fetchedAt}, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*liveResult), nil
	}
}
