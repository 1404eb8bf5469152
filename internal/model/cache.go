package model

import (
	"fmt"
	"time"
)

// Provenance records where a series came from.
type Provenance string

const (
	ProvenanceLive  Provenance = "LIVE"
	ProvenanceCache Provenance = "CACHE"
)

// CacheKey identifies one latest-only cache slot.
type CacheKey struct {
	Symbol   string
	Market   MarketType
	Interval Interval
}

// KeyFor builds the cache key of a symbol/interval pair.
func KeyFor(sym Symbol, interval Interval) CacheKey {
	ticker := sym.Ticker
	if sym.Market == MarketCrypto {
		ticker = sym.String()
	}
	return CacheKey{Symbol: ticker, Market: sym.Market, Interval: interval}
}

func (k CacheKey) String() string {
	return fmt.Sprintf("%s|%s|%s", k.Symbol, k.Market, k.Interval)
}

// CacheEntry is the stored snapshot for a key.
type CacheEntry struct {
	Key        CacheKey
	Series     *TimeSeries
	FetchedAt  time.Time
	Provenance Provenance
}

// Age returns how old the entry is at now.
func (e CacheEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}
