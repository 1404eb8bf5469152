package strategy

import (
	"fmt"

	"TrendSignal/internal/model"
)

// Tiers maps the composite score to a label, highest first.
var Tiers = []model.Tier{
	{Label: "STRONG_BULLISH", MinScore: 80},
	{Label: "BULLISH", MinScore: 60},
	{Label: "NEUTRAL", MinScore: 40},
	{Label: "BEARISH", MinScore: 20},
}

// DefaultTier is used for scores below every tier.
var DefaultTier = model.Tier{Label: "STRONG_BEARISH", MinScore: 0}

func mapTier(total float64) model.Tier {
	for _, t := range Tiers {
		if total >= t.MinScore {
			return t
		}
	}
	return DefaultTier
}

// Evaluate scores the last bar of series against its indicators.
// It fails with model.ErrInsufficientData when any input value is undefined.
func Evaluate(series *model.TimeSeries, ind *model.IndicatorSet, cfg Config) (*model.ScoreResult, error) {
	s, err := latest(series, ind)
	if err != nil {
		return nil, err
	}

	b := model.ScoreBreakdown{
		MACD:       scoreMACD(s, cfg),
		EMATrend:   scoreEMATrend(s, cfg),
		Volume:     scoreVolume(s, cfg),
		PriceVsEMA: scorePriceVsEMA(s, cfg),
		RSI:        scoreRSI(s, cfg),
	}

	total := 0.0
	for _, c := range b.Components() {
		total += c.Points
	}

	return &model.ScoreResult{
		Total:          total,
		Breakdown:      b,
		Tier:           mapTier(total),
		AlertTriggered: total >= cfg.AlertThreshold,
	}, nil
}

func latest(series *model.TimeSeries, ind *model.IndicatorSet) (snapshot, error) {
	if ind == nil {
		return snapshot{}, fmt.Errorf("%w: no indicators", model.ErrInsufficientData)
	}
	bar, ok := series.Last()
	if !ok {
		return snapshot{}, fmt.Errorf("%w: empty series", model.ErrInsufficientData)
	}

	s := snapshot{Close: bar.Close, Volume: bar.Volume, AvgVolume: ind.AvgVolume}
	for _, v := range []struct {
		name string
		dst  *float64
		get  func() (float64, bool)
	}{
		{"ema fast", &s.EMAFast, ind.EMAFast.Last},
		{"ema slow", &s.EMASlow, ind.EMASlow.Last},
		{"macd histogram", &s.Hist, ind.MACDHistogram.Last},
		{"previous macd histogram", &s.PrevHist, ind.MACDHistogram.Prev},
		{"rsi", &s.RSI, ind.RSI.Last},
	} {
		val, ok := v.get()
		if !ok {
			return snapshot{}, fmt.Errorf("%w: %s undefined at last bar", model.ErrInsufficientData, v.name)
		}
		*v.dst = val
	}
	return s, nil
}
