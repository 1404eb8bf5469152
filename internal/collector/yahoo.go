package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"TrendSignal/internal/model"
)

// DefaultYahooURL is the Yahoo Finance chart endpoint root.
const DefaultYahooURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker

	http *httpDoer
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(opts ClientOptions) *YahooFetcher {
	base := opts.BaseURL
	if base == "" {
		base = DefaultYahooURL
	}
	return &YahooFetcher{
		BaseURL: strings.TrimRight(base, "/"),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		http: newHTTPDoer("yahoo", opts),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(sym model.Symbol) string {
	if sym.Market == model.MarketCrypto {
		return sym.Ticker + "-" + sym.QuoteMarket()
	}
	if mapped, ok := f.SymbolMap[sym.Ticker]; ok {
		return mapped
	}
	return sym.Ticker
}

// yahooInterval returns the chart interval and a range long enough for the
// default indicator periods.
func yahooInterval(interval model.Interval) (string, string, error) {
	switch interval {
	case model.Interval1Min:
		return "1m", "5d", nil
	case model.Interval5Min:
		return "5m", "1mo", nil
	case model.Interval15Min:
		return "15m", "1mo", nil
	case model.Interval30Min:
		return "30m", "1mo", nil
	case model.Interval60Min:
		return "60m", "3mo", nil
	case model.IntervalDaily:
		return "1d", "1y", nil
	case model.IntervalWeekly:
		return "1wk", "5y", nil
	case model.IntervalMonthly:
		return "1mo", "10y", nil
	}
	return "", "", fmt.Errorf("unsupported interval %q", interval)
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) (float64, bool) {
	if i >= len(vals) || vals[i] == nil {
		return 0, false
	}
	return *vals[i], true
}

// FetchSeries retrieves one chart and normalizes it.
func (f *YahooFetcher) FetchSeries(ctx context.Context, sym model.Symbol, interval model.Interval) (*model.TimeSeries, error) {
	if sym.Ticker == "" {
		return nil, model.Errorf(model.ErrInvalidSymbol, "fetch", sym, interval, "empty symbol")
	}
	yiv, rng, err := yahooInterval(interval)
	if err != nil {
		return nil, model.NewError(model.ErrInvalidSymbol, "fetch", sym, interval, err)
	}

	u := fmt.Sprintf("%s/%s?interval=%s&range=%s", f.BaseURL, url.PathEscape(f.yahooSymbol(sym)), yiv, rng)
	resp, err := f.http.get(ctx, u, http.Header{"User-Agent": []string{"Mozilla/5.0"}})
	if err != nil {
		return nil, fetchError(sym, interval, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(resp.Body, &chart); err != nil {
		if resp.Status != http.StatusOK {
			return nil, model.Errorf(model.ErrMalformedResponse, "fetch", sym, interval,
				"yahoo: status %d, body: %s", resp.Status, truncate(resp.Body, 200))
		}
		return nil, model.Errorf(model.ErrMalformedResponse, "fetch", sym, interval, "yahoo decode: %v", err)
	}
	if e := chart.Chart.Error; e != nil {
		kind := model.ErrMalformedResponse
		if e.Code == "Not Found" {
			kind = model.ErrInvalidSymbol
		}
		return nil, model.Errorf(kind, "fetch", sym, interval, "yahoo api error: %s", e.Description)
	}
	if resp.Status != http.StatusOK {
		return nil, model.Errorf(model.ErrMalformedResponse, "fetch", sym, interval, "yahoo: status %d", resp.Status)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, model.Errorf(model.ErrInvalidSymbol, "fetch", sym, interval, "yahoo: no data returned")
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, model.Errorf(model.ErrMalformedResponse, "fetch", sym, interval, "yahoo: no quote block")
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		c, okC := at(quote.Close, i)
		if !okO && !okH && !okL && !okC {
			continue // skip null bars (holidays etc.)
		}
		if !okO || !okH || !okL || !okC {
			return nil, model.Errorf(model.ErrMalformedResponse, "fetch", sym, interval,
				"yahoo: incomplete bar at %s", time.Unix(ts, 0).UTC().Format(time.RFC3339))
		}
		v, _ := at(quote.Volume, i)
		bars = append(bars, model.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}
	return finish(sym, interval, bars)
}
