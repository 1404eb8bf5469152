package calculator

import (
	"fmt"

	"TrendSignal/internal/model"
)

// MACD groups the three MACD lines.
type MACD struct {
	Fast      model.Line
	Slow      model.Line
	Line      model.Line
	Signal    model.Line
	Histogram model.Line
}

// CalculateMACD computes line = EMA(fast) - EMA(slow), signal = EMA(line, signal)
// and histogram = line - signal. At least slow+signal closes are required.
func CalculateMACD(closes []float64, fast, slow, signal int) (*MACD, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 {
		return nil, fmt.Errorf("macd periods must be positive (fast=%d slow=%d signal=%d)", fast, slow, signal)
	}
	if fast >= slow {
		return nil, fmt.Errorf("macd fast period %d must be below slow period %d", fast, slow)
	}
	if len(closes) < slow+signal {
		return nil, fmt.Errorf("%w: MACD(%d,%d,%d) needs %d closes, got %d",
			model.ErrInsufficientData, fast, slow, signal, slow+signal, len(closes))
	}

	emaFast, err := CalculateEMA(closes, fast)
	if err != nil {
		return nil, fmt.Errorf("fast ema: %w", err)
	}
	emaSlow, err := CalculateEMA(closes, slow)
	if err != nil {
		return nil, fmt.Errorf("slow ema: %w", err)
	}

	n := len(closes)
	line := make([]float64, n)
	for i := emaSlow.Start; i < n; i++ {
		line[i] = emaFast.Values[i] - emaSlow.Values[i]
	}
	macdLine := model.Line{Values: line, Start: emaSlow.Start}

	sig, err := emaFrom(line, macdLine.Start, signal)
	if err != nil {
		return nil, fmt.Errorf("signal ema: %w", err)
	}

	hist := make([]float64, n)
	for i := sig.Start; i < n; i++ {
		hist[i] = line[i] - sig.Values[i]
	}

	return &MACD{
		Fast:      emaFast,
		Slow:      emaSlow,
		Line:      macdLine,
		Signal:    sig,
		Histogram: model.Line{Values: hist, Start: sig.Start},
	}, nil
}
