package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"

	"TrendSignal/internal/model"
)

// Snapshot is the persisted summary of one analysis.
type Snapshot struct {
	ID         string
	Symbol     string
	Market     model.MarketType
	Interval   model.Interval
	AnalyzedAt time.Time
	FetchedAt  time.Time
	Provenance model.Provenance
	Stale      bool

	Close         float64
	Volume        float64
	AvgVolume     float64
	EMAFast       float64
	EMASlow       float64
	MACD          float64
	MACDSignal    float64
	MACDHistogram float64
	RSI           float64

	// Points per component in breakdown order.
	MACDScore       float64
	EMATrendScore   float64
	VolumeScore     float64
	PriceVsEMAScore float64
	RSIScore        float64
	TotalScore      float64
	TierLabel       string
	Alert           bool
}

// NewSnapshot flattens res into a Snapshot with a fresh id.
func NewSnapshot(res *model.AnalysisResult) *Snapshot {
	s := &Snapshot{
		ID:         uuid.NewString(),
		AnalyzedAt: res.AnalyzedAt.UTC(),
		FetchedAt:  res.FetchedAt.UTC(),
		Provenance: res.Provenance,
		Stale:      res.Stale,
	}
	if res.Series != nil {
		key := model.KeyFor(res.Series.Symbol, res.Series.Interval)
		s.Symbol, s.Market, s.Interval = key.Symbol, key.Market, key.Interval
		if bar, ok := res.Series.Last(); ok {
			s.Close, s.Volume = bar.Close, bar.Volume
		}
	}
	if ind := res.Indicators; ind != nil {
		s.AvgVolume = ind.AvgVolume
		s.EMAFast, _ = ind.EMAFast.Last()
		s.EMASlow, _ = ind.EMASlow.Last()
		s.MACD, _ = ind.MACDLine.Last()
		s.MACDSignal, _ = ind.MACDSignal.Last()
		s.MACDHistogram, _ = ind.MACDHistogram.Last()
		s.RSI, _ = ind.RSI.Last()
	}
	if sc := res.Score; sc != nil {
		b := sc.Breakdown
		s.MACDScore = b.MACD.Points
		s.EMATrendScore = b.EMATrend.Points
		s.VolumeScore = b.Volume.Points
		s.PriceVsEMAScore = b.PriceVsEMA.Points
		s.RSIScore = b.RSI.Points
		s.TotalScore = sc.Total
		s.TierLabel = sc.Tier.Label
		s.Alert = sc.AlertTriggered
	}
	return s
}

// Recorder persists analysis snapshots for later review.
type Recorder interface {
	RecordAnalysis(ctx context.Context, res *model.AnalysisResult) (id string, err error)
	LatestAnalysis(ctx context.Context, key model.CacheKey) (*Snapshot, bool, error)
	Close() error
}
