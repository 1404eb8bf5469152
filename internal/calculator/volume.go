package calculator

import (
	"errors"
	"fmt"

	"TrendSignal/internal/model"
)

// CalculateAverageVolume returns the mean volume of up to window bars
// preceding the last bar. The last bar itself is excluded so it can be
// compared against the average.
func CalculateAverageVolume(bars []model.Bar, window int) (float64, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	if len(bars) < 2 {
		return 0, fmt.Errorf("%w: volume average needs 2 bars, got %d", model.ErrInsufficientData, len(bars))
	}
	end := len(bars) - 1
	start := end - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start; i < end; i++ {
		sum += bars[i].Volume
	}
	return sum / float64(end-start), nil
}
