package analyzer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"TrendSignal/internal/calculator"
	"TrendSignal/internal/collector"
	"TrendSignal/internal/model"
	"TrendSignal/internal/recorder"
	"TrendSignal/internal/strategy"
)

// Request describes one analysis.
type Request struct {
	Symbol       model.Symbol
	Interval     model.Interval
	MaxAge       time.Duration
	ForceRefresh bool
	// Snapshot records the result when a recorder is configured.
	Snapshot bool
}

// Analyzer runs fetch, indicator computation and scoring.
type Analyzer struct {
	Collector *collector.Collector
	Params    model.IndicatorParams
	Scoring   strategy.Config
	Recorder  recorder.Recorder
	Now       func() time.Time
}

// New creates an Analyzer. A nil recorder disables snapshots.
func New(c *collector.Collector, params model.IndicatorParams, scoring strategy.Config, rec recorder.Recorder) *Analyzer {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Analyzer{Collector: c, Params: params, Scoring: scoring, Recorder: rec, Now: time.Now}
}

// Analyze fetches the series, computes indicators and scores the last bar.
// Every error is a *model.Error carrying the symbol, interval and time,
// except ctx cancellation which is returned unwrapped.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*model.AnalysisResult, error) {
	if req.Interval == "" {
		req.Interval = model.IntervalDaily
	}
	if req.Symbol.Ticker == "" {
		return nil, model.Errorf(model.ErrInvalidSymbol, "analyze", req.Symbol, req.Interval, "empty symbol")
	}

	fetched, err := a.Collector.Fetch(ctx, req.Symbol, req.Interval, req.MaxAge, req.ForceRefresh)
	if err != nil {
		return nil, wrap(req, err)
	}

	ind, err := calculator.Compute(fetched.Series, a.Params)
	if err != nil {
		return nil, wrap(req, err)
	}
	score, err := strategy.Evaluate(fetched.Series, ind, a.Scoring)
	if err != nil {
		return nil, wrap(req, err)
	}

	res := &model.AnalysisResult{
		Series:      fetched.Series,
		Indicators:  ind,
		Score:       score,
		Provenance:  fetched.Provenance,
		FetchedAt:   fetched.FetchedAt,
		AnalyzedAt:  a.now(),
		Stale:       fetched.Stale,
		StaleReason: fetched.StaleReason,
	}

	if req.Snapshot {
		id, err := a.Recorder.RecordAnalysis(ctx, res)
		if err != nil {
			slog.Warn("record analysis failed", "symbol", req.Symbol.String(), "error", err)
		} else {
			res.SnapshotID = id
		}
	}

	slog.Info("analysis complete",
		"symbol", req.Symbol.String(), "interval", req.Interval,
		"score", score.Total, "tier", score.Tier.Label,
		"provenance", res.Provenance, "stale", res.Stale)
	return res, nil
}

func (a *Analyzer) now() time.Time {
	if a.Now == nil {
		return time.Now().UTC()
	}
	return a.Now().UTC()
}

// wrap returns err as a single *model.Error for req. Cancellation and
// deadline errors are returned as is.
func wrap(req Request, err error) error {
	var me *model.Error
	if errors.As(err, &me) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	kind := model.KindOf(err)
	if err == kind {
		err = nil
	}
	return model.NewError(kind, "analyze", req.Symbol, req.Interval, err)
}
