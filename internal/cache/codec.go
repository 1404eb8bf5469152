package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"TrendSignal/internal/model"
)

const payloadVersion = 1

// payload is the stored form of a snapshot. Floats use Go's shortest
// round-trip encoding and times are RFC 3339 with nanoseconds in UTC.
type payload struct {
	Version   int            `json:"v"`
	Symbol    model.Symbol   `json:"symbol"`
	Interval  model.Interval `json:"interval"`
	FetchedAt time.Time      `json:"fetched_at"`
	Bars      []model.Bar    `json:"bars"`
}

func encodeSeries(series *model.TimeSeries, fetchedAt time.Time) ([]byte, error) {
	p := payload{
		Version:   payloadVersion,
		Symbol:    series.Symbol,
		Interval:  series.Interval,
		FetchedAt: fetchedAt.UTC(),
		Bars:      make([]model.Bar, len(series.Bars)),
	}
	for i, b := range series.Bars {
		b.Time = b.Time.UTC()
		p.Bars[i] = b
	}
	return json.Marshal(p)
}

func decodeSeries(data []byte) (*model.TimeSeries, time.Time, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode payload: %w", err)
	}
	if p.Version != payloadVersion {
		return nil, time.Time{}, fmt.Errorf("unsupported payload version %d", p.Version)
	}
	return &model.TimeSeries{Symbol: p.Symbol, Interval: p.Interval, Bars: p.Bars}, p.FetchedAt, nil
}
