package collector

import (
	"context"
	"sync/atomic"
	"time"

	"TrendSignal/internal/model"
)

// MockFetcher returns controllable data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  int
	// Series, when set, replaces the generated data.
	Series func(sym model.Symbol, interval model.Interval) (*model.TimeSeries, error)
	Err    error
	Delay  time.Duration

	calls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

// Calls returns how many times FetchSeries was invoked.
func (m *MockFetcher) Calls() int { return int(m.calls.Load()) }

func (m *MockFetcher) FetchSeries(ctx context.Context, sym model.Symbol, interval model.Interval) (*model.TimeSeries, error) {
	m.calls.Add(1)
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, fetchError(sym, interval, ctx.Err())
		}
	}
	if m.Err != nil {
		return nil, fetchError(sym, interval, m.Err)
	}
	if m.Series != nil {
		ts, err := m.Series(sym, interval)
		if err != nil {
			return nil, fetchError(sym, interval, err)
		}
		return ts, nil
	}
	if sym.Ticker == "" {
		return nil, model.Errorf(model.ErrInvalidSymbol, "fetch", sym, interval, "empty symbol")
	}
	count := m.Bars
	if count <= 0 {
		count = 120
	}
	price := m.Price
	if price <= 0 {
		price = 100
	}
	return &model.TimeSeries{Symbol: sym, Interval: interval, Bars: generateMockBars(price, count, interval)}, nil
}

func generateMockBars(basePrice float64, count int, interval model.Interval) []model.Bar {
	step := barStep(interval)
	end := time.Now().UTC().Truncate(step)
	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Time:   end.Add(-time.Duration(count-1-i) * step),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

func barStep(interval model.Interval) time.Duration {
	switch interval {
	case model.Interval1Min:
		return time.Minute
	case model.Interval5Min:
		return 5 * time.Minute
	case model.Interval15Min:
		return 15 * time.Minute
	case model.Interval30Min:
		return 30 * time.Minute
	case model.Interval60Min:
		return time.Hour
	case model.IntervalWeekly:
		return 7 * 24 * time.Hour
	case model.IntervalMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
