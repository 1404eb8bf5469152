package recorder

import (
	"context"

	"TrendSignal/internal/model"
)

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(context.Context, *model.AnalysisResult) (string, error) {
	return "", nil
}

func (n *NoopRecorder) LatestAnalysis(context.Context, model.CacheKey) (*Snapshot, bool, error) {
	return nil, false, nil
}

func (n *NoopRecorder) Close() error { return nil }
