package calculator

import (
	"fmt"

	"TrendSignal/internal/model"
)

// Compute runs every indicator over the series. Any indicator lacking data
// fails the whole computation; nothing is defaulted.
func Compute(series *model.TimeSeries, p model.IndicatorParams) (*model.IndicatorSet, error) {
	closes := series.Closes()

	macd, err := CalculateMACD(closes, p.EMAFast, p.EMASlow, p.MACDSignal)
	if err != nil {
		return nil, fmt.Errorf("macd: %w", err)
	}
	rsi, err := CalculateRSI(closes, p.RSIPeriod)
	if err != nil {
		return nil, fmt.Errorf("rsi: %w", err)
	}
	avgVol, err := CalculateAverageVolume(series.Bars, p.VolumeWindow)
	if err != nil {
		return nil, fmt.Errorf("volume: %w", err)
	}

	return &model.IndicatorSet{
		Params:        p,
		EMAFast:       macd.Fast,
		EMASlow:       macd.Slow,
		MACDLine:      macd.Line,
		MACDSignal:    macd.Signal,
		MACDHistogram: macd.Histogram,
		RSI:           rsi,
		AvgVolume:     avgVol,
	}, nil
}
