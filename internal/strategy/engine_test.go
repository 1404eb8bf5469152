package strategy

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"TrendSignal/internal/model"
)

// fixture describes the last-bar values fed to Evaluate.
type fixture struct {
	close, volume, avgVolume float64
	emaFast, emaSlow         float64
	prevHist, hist           float64
	rsi                      float64
}

func line(prev, last float64) model.Line {
	return model.Line{Values: []float64{0, prev, last}, Start: 1}
}

func build(f fixture) (*model.TimeSeries, *model.IndicatorSet) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := &model.TimeSeries{
		Symbol:   model.NewSymbol("AAPL", model.MarketEquity),
		Interval: model.IntervalDaily,
		Bars: []model.Bar{
			{Time: t0, Close: f.close, Volume: f.avgVolume},
			{Time: t0.AddDate(0, 0, 1), Close: f.close, Volume: f.avgVolume},
			{Time: t0.AddDate(0, 0, 2), Close: f.close, Volume: f.volume},
		},
	}
	ind := &model.IndicatorSet{
		Params:        model.DefaultIndicatorParams(),
		EMAFast:       line(f.emaFast, f.emaFast),
		EMASlow:       line(f.emaSlow, f.emaSlow),
		MACDLine:      line(0, 0),
		MACDSignal:    line(0, 0),
		MACDHistogram: line(f.prevHist, f.hist),
		RSI:           line(f.rsi, f.rsi),
		AvgVolume:     f.avgVolume,
	}
	return series, ind
}

func TestEvaluate_AllBullishExceptOverbought(t *testing.T) {
	series, ind := build(fixture{
		close: 130, volume: 1000, avgVolume: 1000,
		emaFast: 126, emaSlow: 120, prevHist: 0.3, hist: 0.4, rsi: 85,
	})
	res, err := Evaluate(series, ind, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	b := res.Breakdown
	if b.MACD.Points != 25 || b.EMATrend.Points != 25 || b.PriceVsEMA.Points != 15 {
		t.Errorf("unexpected bullish components: %+v", b)
	}
	if b.Volume.Points != 0 || b.RSI.Points != 0 {
		t.Errorf("expected zero volume and RSI points, got %.2f and %.2f", b.Volume.Points, b.RSI.Points)
	}
	if res.Total != 65 {
		t.Errorf("expected total 65, got %.2f", res.Total)
	}
	if res.Tier.Label != "BULLISH" {
		t.Errorf("expected BULLISH tier, got %s", res.Tier.Label)
	}
	if res.AlertTriggered {
		t.Error("65 is below the default alert threshold")
	}
}

func TestEvaluate_TotalIsSumAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cfg := DefaultConfig()
	for i := 0; i < 1000; i++ {
		f := fixture{
			close:     50 + rng.Float64()*100,
			volume:    rng.Float64() * 5000,
			avgVolume: rng.Float64() * 3000,
			emaFast:   50 + rng.Float64()*100,
			emaSlow:   50 + rng.Float64()*100,
			prevHist:  rng.NormFloat64(),
			hist:      rng.NormFloat64(),
			rsi:       rng.Float64() * 100,
		}
		series, ind := build(f)
		res, err := Evaluate(series, ind, cfg)
		if err != nil {
			t.Fatal(err)
		}
		sum, maxSum := 0.0, 0.0
		for _, c := range res.Breakdown.Components() {
			if c.Points < 0 || c.Points > c.MaxPoints {
				t.Fatalf("component %s out of range: %.3f/%.0f", c.Name, c.Points, c.MaxPoints)
			}
			sum += c.Points
			maxSum += c.MaxPoints
		}
		if math.Abs(sum-res.Total) > 1e-9 {
			t.Fatalf("total %.6f != component sum %.6f", res.Total, sum)
		}
		if maxSum != 100 {
			t.Fatalf("max points sum to %.2f", maxSum)
		}
		if res.Total < 0 || res.Total > 100 {
			t.Fatalf("total out of range: %.3f", res.Total)
		}
	}
}

func TestScoreMACD(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		prev, hist float64
		want       float64
	}{
		{0.1, 0.2, 25},
		{0.3, 0.2, 15},
		{-0.1, -0.05, 0},
		{0.1, 0, 0},
	}
	for _, tt := range tests {
		got := scoreMACD(snapshot{Close: 100, PrevHist: tt.prev, Hist: tt.hist}, cfg)
		if got.Points != tt.want {
			t.Errorf("prev=%.2f hist=%.2f: expected %.0f, got %.2f", tt.prev, tt.hist, tt.want, got.Points)
		}
	}
}

func TestScoreEMATrend_Graded(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		fast, slow float64
		want       float64
		why        string
	}{
		{101, 100, 25, "at or above"},
		{100, 100, 25, "at or above"},
		{99, 100, 12.5, "below"},
		{98, 100, 0, "below"},
		{90, 100, 0, "below"},
	}
	for _, tt := range tests {
		got := scoreEMATrend(snapshot{EMAFast: tt.fast, EMASlow: tt.slow}, cfg)
		if math.Abs(got.Points-tt.want) > 1e-9 {
			t.Errorf("fast=%.0f slow=%.0f: expected %.2f, got %.2f", tt.fast, tt.slow, tt.want, got.Points)
		}
		if !strings.HasPrefix(got.Rationale, "fast EMA "+tt.why+" slow EMA") {
			t.Errorf("fast=%.0f slow=%.0f: rationale %q does not match the points", tt.fast, tt.slow, got.Rationale)
		}
	}
}

func TestScoreVolume_Linear(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		vol, avg float64
		want     float64
	}{
		{800, 1000, 0},
		{1000, 1000, 0},
		{1250, 1000, 10},
		{1500, 1000, 20},
		{4000, 1000, 20},
		{10, 0, 20},
		{0, 0, 0},
	}
	for _, tt := range tests {
		got := scoreVolume(snapshot{Volume: tt.vol, AvgVolume: tt.avg}, cfg)
		if math.Abs(got.Points-tt.want) > 1e-9 {
			t.Errorf("vol=%.0f avg=%.0f: expected %.2f, got %.2f", tt.vol, tt.avg, tt.want, got.Points)
		}
	}
}

func TestScorePriceVsEMA(t *testing.T) {
	cfg := DefaultConfig()
	if got := scorePriceVsEMA(snapshot{Close: 101, EMAFast: 100}, cfg); got.Points != 15 {
		t.Errorf("expected 15, got %.0f", got.Points)
	}
	if got := scorePriceVsEMA(snapshot{Close: 100, EMAFast: 100}, cfg); got.Points != 0 {
		t.Errorf("expected 0, got %.0f", got.Points)
	}
}

func TestScoreRSI_Bands(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		rsi, want float64
	}{
		{50, 15}, {40, 15}, {60, 15},
		{35, 7.5}, {65, 7.5},
		{30, 0}, {70, 0}, {85, 0}, {10, 0},
	}
	for _, tt := range tests {
		got := scoreRSI(snapshot{RSI: tt.rsi}, cfg)
		if math.Abs(got.Points-tt.want) > 1e-9 {
			t.Errorf("rsi=%.0f: expected %.2f, got %.2f", tt.rsi, tt.want, got.Points)
		}
	}
}

func TestEvaluate_InsufficientData(t *testing.T) {
	series, ind := build(fixture{close: 100, volume: 1, avgVolume: 1, emaFast: 1, emaSlow: 1, rsi: 50})
	ind.MACDHistogram = model.Line{Values: []float64{0, 0, 0.5}, Start: 2}
	if _, err := Evaluate(series, ind, DefaultConfig()); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData with undefined previous histogram, got %v", err)
	}

	_, ind = build(fixture{close: 100, rsi: 50})
	if _, err := Evaluate(&model.TimeSeries{}, ind, DefaultConfig()); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for empty series, got %v", err)
	}
}

func TestMapTier_AllBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		label string
	}{
		{100, "STRONG_BULLISH"},
		{80, "STRONG_BULLISH"},
		{79.9, "BULLISH"},
		{60, "BULLISH"},
		{45, "NEUTRAL"},
		{40, "NEUTRAL"},
		{20, "BEARISH"},
		{19.9, "STRONG_BEARISH"},
		{0, "STRONG_BEARISH"},
	}
	for _, tt := range tests {
		if got := mapTier(tt.score); got.Label != tt.label {
			t.Errorf("score %.1f: expected %q, got %q", tt.score, tt.label, got.Label)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	bad := DefaultConfig()
	bad.Weights.Volume = 30
	if err := bad.Validate(); err == nil {
		t.Error("expected error for weights summing to 110")
	}
	bad = DefaultConfig()
	bad.RSIInnerLow = 25
	if err := bad.Validate(); err == nil {
		t.Error("expected error for inner band outside outer band")
	}
	bad = DefaultConfig()
	bad.VolumeMultiple = 1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for volume multiple of 1")
	}
}
