package strategy

import (
	"fmt"
	"math"

	"TrendSignal/internal/model"
)

// snapshot is the latest bar plus the indicator values the factors read.
type snapshot struct {
	Close     float64
	Volume    float64
	AvgVolume float64
	EMAFast   float64
	EMASlow   float64
	Hist      float64
	PrevHist  float64
	RSI       float64
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// scoreMACD rewards a bullish histogram, fully when it is still expanding.
// Monotonic in the histogram level and its growth.
func scoreMACD(s snapshot, cfg Config) model.ComponentScore {
	full := cfg.Weights.MACD
	eps := 1e-9 * math.Abs(s.Close)

	var pts float64
	var why string
	switch {
	case s.Hist > eps && s.Hist > s.PrevHist:
		pts, why = full, "bullish crossover, histogram expanding"
	case s.Hist > eps:
		pts, why = full*cfg.MACDPartial, "bullish crossover, histogram not expanding"
	default:
		pts, why = 0, "bearish or flat"
	}
	return model.ComponentScore{
		Name:      "MACD signal",
		Points:    pts,
		MaxPoints: full,
		Rationale: fmt.Sprintf("%s (hist %+.4f)", why, s.Hist),
	}
}

// scoreEMATrend gives full credit while the fast EMA is not below the slow EMA and
// decays linearly to zero as the spread reaches -EMASpreadBand.
func scoreEMATrend(s snapshot, cfg Config) model.ComponentScore {
	full := cfg.Weights.EMATrend
	spread := 0.0
	if s.EMASlow != 0 {
		spread = (s.EMAFast - s.EMASlow) / math.Abs(s.EMASlow)
	}

	var pts float64
	var why string
	if spread >= 0 {
		pts, why = full, "fast EMA at or above slow EMA"
	} else {
		pts = full * clamp(1+spread/cfg.EMASpreadBand, 0, 1)
		why = "fast EMA below slow EMA"
	}
	return model.ComponentScore{
		Name:      "EMA trend",
		Points:    pts,
		MaxPoints: full,
		Rationale: fmt.Sprintf("%s (spread %+.2f%%)", why, spread*100),
	}
}

// scoreVolume scales linearly from 0 at the trailing average to full credit at
// VolumeMultiple times the average.
func scoreVolume(s snapshot, cfg Config) model.ComponentScore {
	full := cfg.Weights.Volume

	var pts float64
	var why string
	switch {
	case s.AvgVolume <= 0 && s.Volume > 0:
		pts, why = full, "volume after an idle window"
	case s.AvgVolume <= 0:
		pts, why = 0, "no traded volume"
	default:
		ratio := s.Volume / s.AvgVolume
		pts = full * clamp((ratio-1)/(cfg.VolumeMultiple-1), 0, 1)
		why = fmt.Sprintf("volume %.2fx trailing average", ratio)
	}
	return model.ComponentScore{Name: "Volume", Points: pts, MaxPoints: full, Rationale: why}
}

// scorePriceVsEMA is all-or-nothing on close > fast EMA.
func scorePriceVsEMA(s snapshot, cfg Config) model.ComponentScore {
	full := cfg.Weights.PriceVsEMA
	if s.Close > s.EMAFast {
		return model.ComponentScore{Name: "Price vs EMA", Points: full, MaxPoints: full, Rationale: "close above fast EMA"}
	}
	return model.ComponentScore{Name: "Price vs EMA", Points: 0, MaxPoints: full, Rationale: "close at or below fast EMA"}
}

// scoreRSI rewards the neutral zone: full inside the inner band, linear decay
// to zero at the outer band edges, zero beyond.
func scoreRSI(s snapshot, cfg Config) model.ComponentScore {
	full := cfg.Weights.RSI
	r := s.RSI

	var frac float64
	var why string
	switch {
	case r >= cfg.RSIInnerLow && r <= cfg.RSIInnerHigh:
		frac, why = 1, "neutral zone"
	case r < cfg.RSIInnerLow && r > cfg.RSIOuterLow:
		frac, why = (r-cfg.RSIOuterLow)/(cfg.RSIInnerLow-cfg.RSIOuterLow), "leaning oversold"
	case r > cfg.RSIInnerHigh && r < cfg.RSIOuterHigh:
		frac, why = (cfg.RSIOuterHigh-r)/(cfg.RSIOuterHigh-cfg.RSIInnerHigh), "leaning overbought"
	case r <= cfg.RSIOuterLow:
		frac, why = 0, "oversold"
	default:
		frac, why = 0, "overbought"
	}
	return model.ComponentScore{
		Name:      "RSI neutral zone",
		Points:    full * clamp(frac, 0, 1),
		MaxPoints: full,
		Rationale: fmt.Sprintf("%s (RSI=%.1f)", why, r),
	}
}
