package recorder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"TrendSignal/internal/model"
)

func sampleResult(at time.Time, total float64) *model.AnalysisResult {
	sym := model.NewSymbol("ETH", model.MarketCrypto)
	series := &model.TimeSeries{Symbol: sym, Interval: model.IntervalDaily, Bars: []model.Bar{
		{Time: at.Add(-24 * time.Hour), Close: 3000, Volume: 10},
		{Time: at, Close: 3100, Volume: 12},
	}}
	line := func(prev, last float64) model.Line { return model.Line{Values: []float64{prev, last}} }
	return &model.AnalysisResult{
		Series: series,
		Indicators: &model.IndicatorSet{
			EMAFast: line(1, 3050), EMASlow: line(1, 2990),
			MACDLine: line(1, 60), MACDSignal: line(1, 40), MACDHistogram: line(1, 20),
			RSI: line(1, 55), AvgVolume: 11,
		},
		Score: &model.ScoreResult{
			Total: total,
			Breakdown: model.ScoreBreakdown{
				MACD: model.ComponentScore{Points: 25}, EMATrend: model.ComponentScore{Points: 25},
				Volume: model.ComponentScore{Points: 4}, PriceVsEMA: model.ComponentScore{Points: 15},
				RSI: model.ComponentScore{Points: 15},
			},
			Tier:           model.Tier{Label: "STRONG_BULLISH", MinScore: 80},
			AlertTriggered: true,
		},
		Provenance: model.ProvenanceLive,
		FetchedAt:  at,
		AnalyzedAt: at.Add(time.Second),
	}
}

func TestSQLiteRecorder_RecordAndLatest(t *testing.T) {
	ctx := context.Background()
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	key := model.KeyFor(model.NewSymbol("ETH", model.MarketCrypto), model.IntervalDaily)
	if _, found, err := r.LatestAnalysis(ctx, key); err != nil || found {
		t.Fatalf("expected no snapshot yet, found=%v err=%v", found, err)
	}

	t1 := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	firstID, err := r.RecordAnalysis(ctx, sampleResult(t1, 70))
	if err != nil {
		t.Fatal(err)
	}
	secondID, err := r.RecordAnalysis(ctx, sampleResult(t1.Add(24*time.Hour), 84))
	if err != nil {
		t.Fatal(err)
	}
	if firstID == "" || firstID == secondID {
		t.Fatalf("expected distinct ids, got %q and %q", firstID, secondID)
	}

	s, found, err := r.LatestAnalysis(ctx, key)
	if err != nil || !found {
		t.Fatalf("expected snapshot, found=%v err=%v", found, err)
	}
	if s.ID != secondID || s.TotalScore != 84 {
		t.Errorf("expected the most recent snapshot, got %+v", s)
	}
	if s.Symbol != "ETH/USD" || s.Market != model.MarketCrypto || s.Interval != model.IntervalDaily {
		t.Errorf("unexpected identity: %s %s %s", s.Symbol, s.Market, s.Interval)
	}
	if s.Close != 3100 || s.EMAFast != 3050 || s.MACDHistogram != 20 || s.RSI != 55 {
		t.Errorf("unexpected indicator values: %+v", s)
	}
	if s.MACDScore != 25 || s.VolumeScore != 4 || s.TierLabel != "STRONG_BULLISH" || !s.Alert {
		t.Errorf("unexpected score values: %+v", s)
	}
	if !s.FetchedAt.Equal(t1.Add(24 * time.Hour)) {
		t.Errorf("unexpected fetchedAt %v", s.FetchedAt)
	}
}

func TestNoopRecorder(t *testing.T) {
	r := NewNoopRecorder()
	id, err := r.RecordAnalysis(context.Background(), sampleResult(time.Now(), 50))
	if err != nil || id != "" {
		t.Errorf("expected silent no-op, got id=%q err=%v", id, err)
	}
	if _, found, _ := r.LatestAnalysis(context.Background(), model.CacheKey{}); found {
		t.Error("noop recorder must never find snapshots")
	}
}
