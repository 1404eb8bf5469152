package model

import "time"

// AnalysisResult is everything one analysis produced.
type AnalysisResult struct {
	Series     *TimeSeries
	Indicators *IndicatorSet
	Score      *ScoreResult

	Provenance Provenance
	FetchedAt  time.Time
	AnalyzedAt time.Time
	// Stale marks a cached series served because the live fetch failed
	// transiently; StaleReason holds that failure.
	Stale       bool
	StaleReason error

	// SnapshotID is set when the result was recorded.
	SnapshotID string
}

// Age returns how old the underlying data is at AnalyzedAt.
func (r *AnalysisResult) Age() time.Duration {
	return r.AnalyzedAt.Sub(r.FetchedAt)
}
