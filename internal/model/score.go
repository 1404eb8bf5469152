package model

// ComponentScore is one scored factor of the composite.
type ComponentScore struct {
	Name      string
	Points    float64
	MaxPoints float64
	Rationale string
}

// ScoreBreakdown lists the five components in display order.
type ScoreBreakdown struct {
	MACD       ComponentScore
	EMATrend   ComponentScore
	Volume     ComponentScore
	PriceVsEMA ComponentScore
	RSI        ComponentScore
}

// Components returns the breakdown as an ordered slice.
func (b ScoreBreakdown) Components() []ComponentScore {
	return []ComponentScore{b.MACD, b.EMATrend, b.Volume, b.PriceVsEMA, b.RSI}
}

// Tier maps a total score range to a label.
type Tier struct {
	Label    string
	MinScore float64
}

// ScoreResult is the final output of the scoring engine.
type ScoreResult struct {
	Total          float64
	Breakdown      ScoreBreakdown
	Tier           Tier
	AlertTriggered bool
}
