package collector

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/tidwall/gjson"

	"TrendSignal/internal/model"
)

// DefaultAlphaVantageURL is the Alpha Vantage query endpoint.
const DefaultAlphaVantageURL = "https://www.alphavantage.co/query"

// AlphaVantageFetcher implements Fetcher against the Alpha Vantage REST API.
type AlphaVantageFetcher struct {
	BaseURL    string
	APIKey     string
	OutputSize string

	http *httpDoer
}

// NewAlphaVantageFetcher creates a fetcher with pacing, retries and a circuit breaker.
func NewAlphaVantageFetcher(opts ClientOptions) *AlphaVantageFetcher {
	base := opts.BaseURL
	if base == "" {
		base = DefaultAlphaVantageURL
	}
	size := opts.OutputSize
	if size == "" {
		size = "compact"
	}
	return &AlphaVantageFetcher{
		BaseURL:    base,
		APIKey:     opts.APIKey,
		OutputSize: size,
		http:       newHTTPDoer("alphavantage", opts),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

// avRequest is the query and the top-level key holding the bars.
type avRequest struct {
	params    url.Values
	seriesKey string
	defaultTZ string
}

func (f *AlphaVantageFetcher) request(sym model.Symbol, interval model.Interval) (avRequest, error) {
	q := url.Values{}
	q.Set("symbol", sym.Ticker)
	q.Set("apikey", f.APIKey)

	r := avRequest{params: q, defaultTZ: "US/Eastern"}
	if sym.Market == model.MarketCrypto {
		q.Set("market", sym.QuoteMarket())
		r.defaultTZ = "UTC"
		switch {
		case interval.Intraday():
			q.Set("function", "CRYPTO_INTRADAY")
			q.Set("interval", string(interval))
			q.Set("outputsize", f.OutputSize)
			r.seriesKey = fmt.Sprintf("Time Series Crypto (%s)", interval)
		case interval == model.IntervalDaily:
			q.Set("function", "DIGITAL_CURRENCY_DAILY")
			r.seriesKey = "Time Series (Digital Currency Daily)"
		case interval == model.IntervalWeekly:
			q.Set("function", "DIGITAL_CURRENCY_WEEKLY")
			r.seriesKey = "Time Series (Digital Currency Weekly)"
		case interval == model.IntervalMonthly:
			q.Set("function", "DIGITAL_CURRENCY_MONTHLY")
			r.seriesKey = "Time Series (Digital Currency Monthly)"
		default:
			return r, fmt.Errorf("unsupported interval %q", interval)
		}
		return r, nil
	}

	switch {
	case interval.Intraday():
		q.Set("function", "TIME_SERIES_INTRADAY")
		q.Set("interval", string(interval))
		q.Set("outputsize", f.OutputSize)
		r.seriesKey = fmt.Sprintf("Time Series (%s)", interval)
	case interval == model.IntervalDaily:
		q.Set("function", "TIME_SERIES_DAILY")
		q.Set("outputsize", f.OutputSize)
		r.seriesKey = "Time Series (Daily)"
	case interval == model.IntervalWeekly:
		q.Set("function", "TIME_SERIES_WEEKLY")
		r.seriesKey = "Weekly Time Series"
	case interval == model.IntervalMonthly:
		q.Set("function", "TIME_SERIES_MONTHLY")
		r.seriesKey = "Monthly Time Series"
	default:
		return r, fmt.Errorf("unsupported interval %q", interval)
	}
	return r, nil
}

// FetchSeries retrieves and normalizes one series.
func (f *AlphaVantageFetcher) FetchSeries(ctx context.Context, sym model.Symbol, interval model.Interval) (*model.TimeSeries, error) {
	if sym.Ticker == "" {
		return nil, model.Errorf(model.ErrInvalidSymbol, "fetch", sym, interval, "empty symbol")
	}
	req, err := f.request(sym, interval)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidSymbol, "fetch", sym, interval, err)
	}

	resp, err := f.http.get(ctx, f.BaseURL+"?"+req.params.Encode(), nil)
	if err != nil {
		return nil, fetchError(sym, interval, err)
	}
	if resp.Status != http.StatusOK {
		return nil, model.Errorf(model.ErrMalformedResponse, "fetch", sym, interval,
			"alphavantage: status %d, body: %s", resp.Status, truncate(resp.Body, 200))
	}

	bars, err := decodeAlphaVantage(resp.Body, req, sym.QuoteMarket())
	if err != nil {
		return nil, fetchError(sym, interval, err)
	}
	return finish(sym, interval, bars)
}

// decodeAlphaVantage classifies soft errors and turns the series object into bars.
func decodeAlphaVantage(body []byte, req avRequest, quote string) ([]model.Bar, error) {
	if !gjson.ValidBytes(body) {
		return nil, classify(model.ErrMalformedResponse, "alphavantage: invalid JSON: %s", truncate(body, 200))
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, classify(model.ErrMalformedResponse, "alphavantage: unexpected top-level %s", root.Type)
	}
	top := root.Map()

	if msg, ok := top["Error Message"]; ok {
		return nil, classify(model.ErrInvalidSymbol, "alphavantage: %s", msg.String())
	}
	if note, ok := top["Note"]; ok {
		return nil, classify(model.ErrRateLimited, "alphavantage: %s", note.String())
	}
	series, ok := top[req.seriesKey]
	if info, hasInfo := top["Information"]; hasInfo && !ok {
		if mentionsRateLimit(info.String()) {
			return nil, classify(model.ErrRateLimited, "alphavantage: %s", info.String())
		}
		return nil, classify(model.ErrMalformedResponse, "alphavantage: %s", info.String())
	}
	if !ok {
		return nil, classify(model.ErrInvalidSymbol, "alphavantage: response has no %q", req.seriesKey)
	}
	if !series.IsObject() {
		return nil, classify(model.ErrMalformedResponse, "alphavantage: %q is %s, want object", req.seriesKey, series.Type)
	}

	loc, err := seriesLocation(top["Meta Data"], req.defaultTZ)
	if err != nil {
		return nil, err
	}

	var bars []model.Bar
	series.ForEach(func(k, v gjson.Result) bool {
		var t time.Time
		t, err = parseStamp(k.String(), loc)
		if err != nil {
			return false
		}
		var b model.Bar
		b, err = parseBar(v, quote)
		if err != nil {
			err = fmt.Errorf("bar %s: %w", k.String(), err)
			return false
		}
		b.Time = t
		bars = append(bars, b)
		return true
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

func mentionsRateLimit(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "rate limit") || strings.Contains(m, "call frequency") ||
		strings.Contains(m, "requests per")
}

// seriesLocation reads the "N. Time Zone" entry of the Meta Data block.
func seriesLocation(meta gjson.Result, fallback string) (*time.Location, error) {
	name := fallback
	meta.ForEach(func(k, v gjson.Result) bool {
		if strings.HasSuffix(k.String(), "Time Zone") && v.String() != "" {
			name = v.String()
			return false
		}
		return true
	})
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, classify(model.ErrMalformedResponse, "alphavantage: time zone %q: %w", name, err)
	}
	return loc, nil
}

// parseStamp reads intraday stamps in loc and dates as UTC midnight.
func parseStamp(s string, loc *time.Location) (time.Time, error) {
	if len(s) <= len("2006-01-02") {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return time.Time{}, classify(model.ErrMalformedResponse, "alphavantage: bad date %q", s)
		}
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04:05", s, loc)
	if err != nil {
		return time.Time{}, classify(model.ErrMalformedResponse, "alphavantage: bad timestamp %q", s)
	}
	return t.UTC(), nil
}

var barFields = []struct {
	n    int
	name string
}{
	{1, "open"}, {2, "high"}, {3, "low"}, {4, "close"}, {5, "volume"},
}

func parseBar(v gjson.Result, quote string) (model.Bar, error) {
	if !v.IsObject() {
		return model.Bar{}, classify(model.ErrMalformedResponse, "alphavantage: bar is %s, want object", v.Type)
	}
	fields := v.Map()
	var vals [5]float64
	for i, f := range barFields {
		raw, ok := lookupField(fields, f.n, f.name, quote)
		if !ok {
			return model.Bar{}, classify(model.ErrMalformedResponse, "alphavantage: missing %s", f.name)
		}
		x, err := number(raw)
		if err != nil {
			return model.Bar{}, classify(model.ErrMalformedResponse, "alphavantage: %s: %w", f.name, err)
		}
		vals[i] = x
	}
	return model.Bar{Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}, nil
}

// lookupField prefers the "a" column in the requested quote currency, then
// the single-currency forms.
func lookupField(fields map[string]gjson.Result, n int, name, quote string) (gjson.Result, bool) {
	for _, key := range []string{
		fmt.Sprintf("%da. %s (%s)", n, name, quote),
		fmt.Sprintf("%d. %s (%s)", n, name, quote),
		fmt.Sprintf("%d. %s", n, name),
	} {
		if r, ok := fields[key]; ok {
			return r, true
		}
	}
	return gjson.Result{}, false
}

func number(r gjson.Result) (float64, error) {
	switch r.Type {
	case gjson.Number:
		return r.Float(), nil
	case gjson.String:
		x, err := strconv.ParseFloat(strings.TrimSpace(r.String()), 64)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, fmt.Errorf("non-finite value %q", r.String())
		}
		return x, nil
	default:
		return 0, fmt.Errorf("unexpected %s value", r.Type)
	}
}
