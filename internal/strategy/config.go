package strategy

import (
	"fmt"
	"math"
)

// Weights are the maximum points of each component. They must sum to 100.
type Weights struct {
	MACD       float64 `yaml:"macd" envconfig:"SCORE_WEIGHT_MACD"`
	EMATrend   float64 `yaml:"ema_trend" envconfig:"SCORE_WEIGHT_EMA_TREND"`
	Volume     float64 `yaml:"volume" envconfig:"SCORE_WEIGHT_VOLUME"`
	PriceVsEMA float64 `yaml:"price_vs_ema" envconfig:"SCORE_WEIGHT_PRICE_VS_EMA"`
	RSI        float64 `yaml:"rsi" envconfig:"SCORE_WEIGHT_RSI"`
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	return w.MACD + w.EMATrend + w.Volume + w.PriceVsEMA + w.RSI
}

// Config holds the scoring weights and thresholds.
type Config struct {
	Weights Weights `yaml:"weights"`

	// MACDPartial is the fraction of the MACD points awarded for a bullish
	// histogram that is not growing.
	MACDPartial float64 `yaml:"macd_partial" envconfig:"SCORE_MACD_PARTIAL"`
	// EMASpreadBand is the relative bearish spread at which the EMA trend
	// component reaches zero.
	EMASpreadBand float64 `yaml:"ema_spread_band" envconfig:"SCORE_EMA_SPREAD_BAND"`
	// VolumeMultiple is the last/average volume ratio earning full credit.
	VolumeMultiple float64 `yaml:"volume_multiple" envconfig:"SCORE_VOLUME_MULTIPLE"`

	RSIInnerLow  float64 `yaml:"rsi_inner_low" envconfig:"SCORE_RSI_INNER_LOW"`
	RSIInnerHigh float64 `yaml:"rsi_inner_high" envconfig:"SCORE_RSI_INNER_HIGH"`
	RSIOuterLow  float64 `yaml:"rsi_outer_low" envconfig:"SCORE_RSI_OUTER_LOW"`
	RSIOuterHigh float64 `yaml:"rsi_outer_high" envconfig:"SCORE_RSI_OUTER_HIGH"`

	AlertThreshold float64 `yaml:"alert_threshold" envconfig:"SCORE_ALERT_THRESHOLD"`
}

// DefaultConfig returns the 25/25/20/15/15 weighting with a 40-60 RSI band.
func DefaultConfig() Config {
	return Config{
		Weights:        Weights{MACD: 25, EMATrend: 25, Volume: 20, PriceVsEMA: 15, RSI: 15},
		MACDPartial:    0.6,
		EMASpreadBand:  0.02,
		VolumeMultiple: 1.5,
		RSIInnerLow:    40,
		RSIInnerHigh:   60,
		RSIOuterLow:    30,
		RSIOuterHigh:   70,
		AlertThreshold: 70,
	}
}

// Validate checks the weights and band ordering.
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"macd": w.MACD, "ema_trend": w.EMATrend, "volume": w.Volume,
		"price_vs_ema": w.PriceVsEMA, "rsi": w.RSI,
	} {
		if v < 0 {
			return fmt.Errorf("scoring.weights.%s must not be negative", name)
		}
	}
	if math.Abs(w.Sum()-100) > 1e-9 {
		return fmt.Errorf("scoring.weights must sum to 100, got %.2f", w.Sum())
	}
	if c.MACDPartial < 0 || c.MACDPartial > 1 {
		return fmt.Errorf("scoring.macd_partial must be within [0,1]")
	}
	if c.EMASpreadBand <= 0 {
		return fmt.Errorf("scoring.ema_spread_band must be positive")
	}
	if c.VolumeMultiple <= 1 {
		return fmt.Errorf("scoring.volume_multiple must be above 1")
	}
	if !(c.RSIOuterLow <= c.RSIInnerLow && c.RSIInnerLow <= c.RSIInnerHigh && c.RSIInnerHigh <= c.RSIOuterHigh) {
		return fmt.Errorf("scoring rsi bands must satisfy outer_low <= inner_low <= inner_high <= outer_high")
	}
	if c.AlertThreshold < 0 || c.AlertThreshold > 100 {
		return fmt.Errorf("scoring.alert_threshold must be within [0,100]")
	}
	return nil
}
