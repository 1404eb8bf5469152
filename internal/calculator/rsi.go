package calculator

import (
	"errors"
	"fmt"

	"TrendSignal/internal/model"
)

// CalculateRSI computes the Wilder-smoothed RSI over closes.
// Requires at least period+1 closes; the first defined value is at index period.
// A window with no losses yields 100, including a flat series.
func CalculateRSI(closes []float64, period int) (model.Line, error) {
	if period <= 0 {
		return model.Line{}, errors.New("period must be positive")
	}
	if len(closes) < period+1 {
		return model.Line{}, fmt.Errorf("%w: RSI(%d) needs %d closes, got %d",
			model.ErrInsufficientData, period, period+1, len(closes))
	}

	out := make([]float64, len(closes))

	// Initial average gain/loss over the first `period` changes
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}

	return model.Line{Values: out, Start: period}, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}
