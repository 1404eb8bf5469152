package calculator

import (
	"errors"
	"math"
	"testing"
	"time"

	"TrendSignal/internal/model"
)

const tol = 1e-9

func rising(n int, from, to float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = from * math.Pow(to/from, float64(i)/float64(n-1))
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	got, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if got != 4 {
		t.Errorf("expected 4, got %f", got)
	}
	if _, err := CalculateSMA([]float64{1}, 3); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	if _, err := CalculateSMA([]float64{1}, 0); err == nil {
		t.Error("expected error for zero period")
	}
}

func TestCalculateEMA_SeedAndRecursion(t *testing.T) {
	prices := []float64{2, 4, 6, 8, 10}
	line, err := CalculateEMA(prices, 3)
	if err != nil {
		t.Fatal(err)
	}
	if line.Start != 2 {
		t.Fatalf("expected first defined index 2, got %d", line.Start)
	}
	if _, ok := line.At(1); ok {
		t.Error("value before the window must be undefined")
	}
	if v, _ := line.At(2); v != 4 {
		t.Errorf("seed should be SMA of first 3 = 4, got %f", v)
	}
	// k = 0.5: 8*0.5 + 4*0.5 = 6, then 10*0.5 + 6*0.5 = 8
	if v, _ := line.At(3); math.Abs(v-6) > tol {
		t.Errorf("expected 6, got %f", v)
	}
	if v, _ := line.Last(); math.Abs(v-8) > tol {
		t.Errorf("expected 8, got %f", v)
	}
	if line.Defined() > len(prices) {
		t.Error("defined length exceeds source length")
	}
}

func TestCalculateEMA_ConstantSeries(t *testing.T) {
	prices := make([]float64, 50)
	for i := range prices {
		prices[i] = 42.5
	}
	for _, period := range []int{1, 5, 12, 26} {
		line, err := CalculateEMA(prices, period)
		if err != nil {
			t.Fatal(err)
		}
		for _, v := range line.Tail() {
			if math.Abs(v-42.5) > tol {
				t.Fatalf("period %d: expected 42.5, got %f", period, v)
			}
		}
	}
}

func TestCalculateEMA_Insufficient(t *testing.T) {
	if _, err := CalculateEMA([]float64{1, 2}, 3); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCalculateMACD_HistogramIdentity(t *testing.T) {
	series := [][]float64{
		rising(40, 100, 130),
		rising(60, 130, 90),
	}
	zigzag := make([]float64, 80)
	for i := range zigzag {
		zigzag[i] = 100 + 10*math.Sin(float64(i)/3) + float64(i%7)
	}
	series = append(series, zigzag)

	for n, closes := range series {
		m, err := CalculateMACD(closes, 12, 26, 9)
		if err != nil {
			t.Fatalf("series %d: %v", n, err)
		}
		if m.Histogram.Start != 26-1+9-1 {
			t.Errorf("series %d: unexpected histogram start %d", n, m.Histogram.Start)
		}
		for i := m.Histogram.Start; i < len(closes); i++ {
			line, _ := m.Line.At(i)
			sig, _ := m.Signal.At(i)
			hist, _ := m.Histogram.At(i)
			if math.Abs(hist-(line-sig)) > tol {
				t.Fatalf("series %d idx %d: histogram %f != line-signal %f", n, i, hist, line-sig)
			}
		}
	}
}

func TestCalculateMACD_Insufficient(t *testing.T) {
	_, err := CalculateMACD(rising(34, 100, 110), 12, 26, 9)
	if !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for 34 closes, got %v", err)
	}
	if _, err := CalculateMACD(rising(35, 100, 110), 12, 26, 9); err != nil {
		t.Errorf("35 closes should be enough: %v", err)
	}
	if _, err := CalculateMACD(rising(60, 100, 110), 26, 12, 9); err == nil {
		t.Error("expected error when fast >= slow")
	}
}

func TestCalculateMACD_BullishOnSteadyGrowth(t *testing.T) {
	m, err := CalculateMACD(rising(60, 100, 130), 12, 26, 9)
	if err != nil {
		t.Fatal(err)
	}
	last, _ := m.Histogram.Last()
	prev, _ := m.Histogram.Prev()
	if last <= 0 || last <= prev {
		t.Errorf("expected positive growing histogram, got prev=%f last=%f", prev, last)
	}
}

func TestCalculateRSI(t *testing.T) {
	up := rising(40, 100, 140)
	down := rising(40, 140, 100)
	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 100
	}

	tests := []struct {
		name   string
		closes []float64
		check  func(float64) bool
	}{
		{"increasing", up, func(v float64) bool { return v == 100 }},
		{"decreasing", down, func(v float64) bool { return v == 0 }},
		{"flat", flat, func(v float64) bool { return v == 100 }},
	}
	for _, tt := range tests {
		line, err := CalculateRSI(tt.closes, 14)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		v, ok := line.Last()
		if !ok || !tt.check(v) {
			t.Errorf("%s: unexpected RSI %f", tt.name, v)
		}
	}
}

func TestCalculateRSI_TrendsTowardExtremes(t *testing.T) {
	// Mostly rising with small pullbacks: RSI should be high but bounded.
	closes := make([]float64, 60)
	closes[0] = 100
	for i := 1; i < len(closes); i++ {
		if i%5 == 0 {
			closes[i] = closes[i-1] - 0.5
		} else {
			closes[i] = closes[i-1] + 1
		}
	}
	line, err := CalculateRSI(closes, 14)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := line.Last()
	if v <= 70 || v >= 100 {
		t.Errorf("expected RSI in (70,100), got %f", v)
	}
	for _, x := range line.Tail() {
		if x < 0 || x > 100 {
			t.Fatalf("RSI out of range: %f", x)
		}
	}
}

func TestCalculateRSI_Insufficient(t *testing.T) {
	if _, err := CalculateRSI(make([]float64, 14), 14); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	line, err := CalculateRSI(make([]float64, 15), 14)
	if err != nil {
		t.Fatalf("15 closes should be enough: %v", err)
	}
	if line.Start != 14 {
		t.Errorf("expected first RSI at index 14, got %d", line.Start)
	}
}

func TestCalculateAverageVolume(t *testing.T) {
	bars := []model.Bar{{Volume: 10}, {Volume: 20}, {Volume: 30}, {Volume: 1000}}
	avg, err := CalculateAverageVolume(bars, 2)
	if err != nil {
		t.Fatal(err)
	}
	if avg != 25 {
		t.Errorf("expected 25 (last bar excluded), got %f", avg)
	}
	avg, _ = CalculateAverageVolume(bars, 50)
	if avg != 20 {
		t.Errorf("expected 20 for short series, got %f", avg)
	}
	if _, err := CalculateAverageVolume(bars[:1], 5); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
}

func TestCompute(t *testing.T) {
	closes := rising(40, 100, 120)
	series := &model.TimeSeries{Symbol: model.NewSymbol("AAPL", model.MarketEquity), Interval: model.IntervalDaily}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, c := range closes {
		series.Bars = append(series.Bars, model.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1000})
	}

	set, err := Compute(series, model.DefaultIndicatorParams())
	if err != nil {
		t.Fatal(err)
	}
	for name, l := range map[string]model.Line{
		"emaFast": set.EMAFast, "emaSlow": set.EMASlow, "macd": set.MACDLine,
		"signal": set.MACDSignal, "hist": set.MACDHistogram, "rsi": set.RSI,
	} {
		if l.Len() != len(closes) {
			t.Errorf("%s not aligned to source: %d", name, l.Len())
		}
		if _, ok := l.Last(); !ok {
			t.Errorf("%s has no last value", name)
		}
	}
	if set.AvgVolume != 1000 {
		t.Errorf("expected avg volume 1000, got %f", set.AvgVolume)
	}

	series.Bars = series.Bars[:30]
	if _, err := Compute(series, model.DefaultIndicatorParams()); !errors.Is(err, model.ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for 30 bars, got %v", err)
	}
}
