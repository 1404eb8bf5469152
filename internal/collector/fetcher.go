package collector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"TrendSignal/internal/model"
)

// Fetcher retrieves a normalized price series from one market-data provider.
type Fetcher interface {
	FetchSeries(ctx context.Context, sym model.Symbol, interval model.Interval) (*model.TimeSeries, error)
	Name() string
}

// NewFetcher builds the fetcher named by provider.
func NewFetcher(provider string, opts ClientOptions) (Fetcher, error) {
	switch strings.ToLower(provider) {
	case "", "alphavantage", "alpha_vantage":
		return NewAlphaVantageFetcher(opts), nil
	case "yahoo":
		return NewYahooFetcher(opts), nil
	case "mock":
		return &MockFetcher{Price: 100, Bars: 120}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

// fetchError wraps err in a *model.Error for sym/interval. Unclassified
// failures are reported as network errors.
func fetchError(sym model.Symbol, interval model.Interval, err error) error {
	var me *model.Error
	if errors.As(err, &me) {
		return err
	}
	kind := model.KindOf(err)
	if kind == nil {
		kind = model.ErrNetwork
	}
	if err == kind {
		err = nil
	}
	return model.NewError(kind, "fetch", sym, interval, err)
}

// finish sorts bars, collapses duplicate timestamps to the last one seen and
// validates the result.
func finish(sym model.Symbol, interval model.Interval, bars []model.Bar) (*model.TimeSeries, error) {
	if len(bars) == 0 {
		return nil, model.Errorf(model.ErrInvalidSymbol, "fetch", sym, interval, "provider returned no bars")
	}
	byTime := make(map[int64]int, len(bars))
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		k := b.Time.UnixNano()
		if i, ok := byTime[k]; ok {
			out[i] = b
			continue
		}
		byTime[k] = len(out)
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })

	ts := &model.TimeSeries{Symbol: sym, Interval: interval, Bars: out}
	if err := ts.Validate(); err != nil {
		return nil, model.NewError(model.ErrMalformedResponse, "fetch", sym, interval, err)
	}
	return ts, nil
}
