package scheduler

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"TrendSignal/internal/analyzer"
	"TrendSignal/internal/cache"
	"TrendSignal/internal/collector"
	"TrendSignal/internal/model"
	"TrendSignal/internal/strategy"
)

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeNotifier) SendWithRetry(ctx context.Context, text string, _ int) error {
	return f.Send(ctx, text)
}

func (f *fakeNotifier) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

// rising returns 40 bars growing 1% per bar with flat volume. With 6/13/5
// periods it scores 65.
func rising(sym model.Symbol, iv model.Interval) (*model.TimeSeries, error) {
	if sym.Ticker == "ZZZZ" {
		return nil, model.ErrInvalidSymbol
	}
	t0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, 40)
	for i := range bars {
		c := 100 * math.Pow(1.01, float64(i))
		bars[i] = model.Bar{Time: t0.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 500}
	}
	return &model.TimeSeries{Symbol: sym, Interval: iv, Bars: bars}, nil
}

func newTestScheduler(t *testing.T, symbols ...string) (*Scheduler, *fakeNotifier, *collector.MockFetcher) {
	t.Helper()
	params := model.DefaultIndicatorParams()
	params.EMAFast, params.EMASlow, params.MACDSignal = 6, 13, 5
	mock := &collector.MockFetcher{Series: rising}
	an := analyzer.New(collector.NewCollector(mock, cache.NewMemoryStore(), time.Second), params, strategy.DefaultConfig(), nil)

	syms := make([]model.Symbol, 0, len(symbols))
	for _, s := range symbols {
		sym, err := model.ParseSymbol(s, model.DefaultCryptoSymbols)
		if err != nil {
			t.Fatal(err)
		}
		syms = append(syms, sym)
	}
	n := &fakeNotifier{}
	s := NewScheduler(context.Background(), an, n, Options{
		Symbols:       syms,
		Interval:      model.IntervalDaily,
		MaxAge:        time.Hour,
		Workers:       2,
		CryptoSymbols: model.DefaultCryptoSymbols,
	})
	return s, n, mock
}

func TestRunNow_ScoresEverySymbolInOrder(t *testing.T) {
	s, _, mock := newTestScheduler(t, "AAPL", "BTC", "ZZZZ", "MSFT")
	lines := s.RunNow(context.Background())
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}
	for i, want := range []string{"AAPL", "BTC/USD", "ZZZZ", "MSFT"} {
		if lines[i].Symbol.String() != want {
			t.Errorf("line %d: expected %s, got %s", i, want, lines[i].Symbol)
		}
	}
	if !errors.Is(lines[2].Err, model.ErrInvalidSymbol) {
		t.Errorf("expected invalid symbol for ZZZZ, got %v", lines[2].Err)
	}
	for _, i := range []int{0, 1, 3} {
		if lines[i].Err != nil || lines[i].Result == nil {
			t.Errorf("line %d: unexpected failure %v", i, lines[i].Err)
		}
	}
	if mock.Calls() != 4 {
		t.Errorf("expected one fetch per symbol, got %d", mock.Calls())
	}

	s.RunNow(context.Background())
	if mock.Calls() != 5 {
		t.Errorf("expected only the uncached symbol to be refetched, got %d calls", mock.Calls())
	}
}

func TestRunNow_AlertsOnlyOnCrossing(t *testing.T) {
	s, n, _ := newTestScheduler(t, "AAPL")

	s.Analyzer.Scoring.AlertThreshold = 60
	s.RunNow(context.Background())
	if got := n.messages(); len(got) != 1 || !strings.Contains(got[0], "AAPL") {
		t.Fatalf("expected one alert, got %v", got)
	}

	s.RunNow(context.Background())
	if got := n.messages(); len(got) != 1 {
		t.Fatalf("expected no repeat alert while above threshold, got %v", got)
	}

	s.Analyzer.Scoring.AlertThreshold = 90
	s.RunNow(context.Background())
	s.Analyzer.Scoring.AlertThreshold = 60
	s.RunNow(context.Background())
	if got := n.messages(); len(got) != 2 {
		t.Fatalf("expected a second alert after dropping below, got %v", got)
	}
}

func TestHandleCommand(t *testing.T) {
	s, _, mock := newTestScheduler(t, "AAPL")

	tests := []struct {
		name    string
		command string
		want    []string
	}{
		{"help", "/help", []string{"/analyze SYMBOL"}},
		{"unknown", "hello", []string{"Available commands"}},
		{"analyze equity", "/analyze aapl", []string{"<b>AAPL</b> daily", "Total:"}},
		{"analyze inferred crypto", "/analyze eth weekly", []string{"<b>ETH/USD</b> weekly"}},
		{"analyze explicit market", "/analyze@trend_bot SOL/EUR crypto 60min", []string{"<b>SOL/EUR</b> 60min"}},
		{"analyze missing symbol", "/analyze", []string{"missing symbol"}},
		{"analyze bad argument", "/analyze AAPL yearly", []string{"unexpected argument"}},
		{"analyze provider error", "/analyze ZZZZ", []string{"invalid symbol"}},
		{"watchlist", "/watchlist", []string{"Watchlist", "AAPL: 65.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := s.HandleCommand(context.Background(), tt.command)
			for _, w := range tt.want {
				if !strings.Contains(reply, w) {
					t.Errorf("reply to %q missing %q:\n%s", tt.command, w, reply)
				}
			}
		})
	}
	if mock.Calls() == 0 {
		t.Error("expected commands to reach the provider")
	}
}

func TestRegisterAll_RejectsBadCron(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	if err := s.RegisterAll("not a cron"); err == nil {
		t.Error("expected an error for an invalid cron expression")
	}
	if err := s.RegisterAll("0 */5 * * * *"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
