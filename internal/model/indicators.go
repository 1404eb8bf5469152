package model

import "fmt"

// Line is an indicator aligned to its source series. Values before Start
// are undefined and must not be read.
type Line struct {
	Values []float64
	Start  int
}

// Len returns the aligned length (equal to the source length).
func (l Line) Len() int { return len(l.Values) }

// Defined returns how many trailing entries carry a value.
func (l Line) Defined() int {
	if l.Start >= len(l.Values) {
		return 0
	}
	return len(l.Values) - l.Start
}

// At returns the value at i if it is defined.
func (l Line) At(i int) (float64, bool) {
	if i < l.Start || i < 0 || i >= len(l.Values) {
		return 0, false
	}
	return l.Values[i], true
}

// Last returns the most recent defined value.
func (l Line) Last() (float64, bool) {
	return l.At(len(l.Values) - 1)
}

// Prev returns the value one step before the last.
func (l Line) Prev() (float64, bool) {
	return l.At(len(l.Values) - 2)
}

// Tail returns the defined values only.
func (l Line) Tail() []float64 {
	if l.Start >= len(l.Values) {
		return nil
	}
	return l.Values[l.Start:]
}

// IndicatorParams are the lookback periods used to compute an IndicatorSet.
type IndicatorParams struct {
	EMAFast      int `yaml:"ema_fast" json:"ema_fast" envconfig:"INDICATOR_EMA_FAST"`
	EMASlow      int `yaml:"ema_slow" json:"ema_slow" envconfig:"INDICATOR_EMA_SLOW"`
	MACDSignal   int `yaml:"macd_signal" json:"macd_signal" envconfig:"INDICATOR_MACD_SIGNAL"`
	RSIPeriod    int `yaml:"rsi_period" json:"rsi_period" envconfig:"INDICATOR_RSI_PERIOD"`
	VolumeWindow int `yaml:"volume_window" json:"volume_window" envconfig:"INDICATOR_VOLUME_WINDOW"`
}

// DefaultIndicatorParams returns the conventional 12/26/9 MACD, RSI(14) and a 20-bar volume window.
func DefaultIndicatorParams() IndicatorParams {
	return IndicatorParams{EMAFast: 12, EMASlow: 26, MACDSignal: 9, RSIPeriod: 14, VolumeWindow: 20}
}

// Validate checks the periods are usable.
func (p IndicatorParams) Validate() error {
	if p.EMAFast < 1 || p.EMASlow < 1 || p.MACDSignal < 1 || p.RSIPeriod < 1 || p.VolumeWindow < 1 {
		return fmt.Errorf("indicator periods must be positive: %+v", p)
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("ema_fast (%d) must be below ema_slow (%d)", p.EMAFast, p.EMASlow)
	}
	return nil
}

// IndicatorSet holds every indicator computed over one series.
type IndicatorSet struct {
	Params        IndicatorParams
	EMAFast       Line
	EMASlow       Line
	MACDLine      Line
	MACDSignal    Line
	MACDHistogram Line
	RSI           Line
	AvgVolume     float64 // trailing average before the last bar
}
