package calculator

import (
	"errors"
	"fmt"

	"TrendSignal/internal/model"
)

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, fmt.Errorf("%w: SMA(%d) needs %d values, got %d", model.ErrInsufficientData, period, period, len(prices))
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateEMA computes the exponential moving average aligned to prices.
// The first defined value sits at index period-1 and is seeded with the SMA
// of the first period prices; after that ema[i] = p[i]*k + ema[i-1]*(1-k)
// with k = 2/(period+1).
func CalculateEMA(prices []float64, period int) (model.Line, error) {
	return emaFrom(prices, 0, period)
}

// emaFrom computes an EMA over values[start:], keeping alignment to values.
func emaFrom(values []float64, start, period int) (model.Line, error) {
	if period <= 0 {
		return model.Line{}, errors.New("period must be positive")
	}
	if start < 0 {
		start = 0
	}
	n := len(values)
	if n-start < period {
		return model.Line{}, fmt.Errorf("%w: EMA(%d) needs %d values, got %d",
			model.ErrInsufficientData, period, period, max(n-start, 0))
	}

	out := make([]float64, n)
	seed, _ := CalculateSMA(values[start:start+period], period)
	first := start + period - 1
	out[first] = seed

	k := 2.0 / float64(period+1)
	for i := first + 1; i < n; i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return model.Line{Values: out, Start: first}, nil
}
