package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"TrendSignal/internal/model"
)

const yahooBody = `{"chart":{"result":[{
  "timestamp":[1709287200,1709200800,1709546400],
  "indicators":{"quote":[{
    "open":[179.55,181.27,null],
    "high":[180.53,182.57,null],
    "low":[177.38,179.53,null],
    "close":[179.66,180.75,null],
    "volume":[73563082,null,null]
  }]}
}],"error":null}}`

func TestYahoo_FetchSeries(t *testing.T) {
	var path, interval string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, interval = r.URL.Path, r.URL.Query().Get("interval")
		w.Write([]byte(yahooBody))
	}))
	defer srv.Close()

	f := NewYahooFetcher(testOptions(srv.URL))
	ts, err := f.FetchSeries(context.Background(), model.NewSymbol("BTC", model.MarketCrypto), model.IntervalWeekly)
	if err != nil {
		t.Fatal(err)
	}
	if path != "/BTC-USD" || interval != "1wk" {
		t.Errorf("unexpected request path=%s interval=%s", path, interval)
	}
	if ts.Len() != 2 {
		t.Fatalf("expected the all-null bar to be dropped, got %d bars", ts.Len())
	}
	if !ts.Bars[0].Time.Equal(time.Unix(1709200800, 0)) || ts.Bars[0].Close != 180.75 {
		t.Errorf("expected ascending bars, got %+v", ts.Bars[0])
	}
	if ts.Bars[0].Volume != 0 || ts.Bars[1].Volume != 73563082 {
		t.Errorf("unexpected volumes: %+v", ts.Bars)
	}
}

func TestYahoo_SymbolMapping(t *testing.T) {
	f := NewYahooFetcher(ClientOptions{})
	if got := f.yahooSymbol(model.NewSymbol("spx500", model.MarketEquity)); got != "^GSPC" {
		t.Errorf("expected ^GSPC, got %s", got)
	}
	if got := f.yahooSymbol(model.Symbol{Ticker: "ETH", Market: model.MarketCrypto, Quote: "EUR"}); got != "ETH-EUR" {
		t.Errorf("expected ETH-EUR, got %s", got)
	}
}

func TestYahoo_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"not found", 404, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`, model.ErrInvalidSymbol},
		{"bad request", 400, `{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid input"}}}`, model.ErrMalformedResponse},
		{"rate limited", 429, `Too Many Requests`, model.ErrRateLimited},
		{"no result", 200, `{"chart":{"result":[],"error":null}}`, model.ErrInvalidSymbol},
		{"garbage", 200, `not json`, model.ErrMalformedResponse},
		{"partial null bar", 200, `{"chart":{"result":[{"timestamp":[1709200800,1709287200],"indicators":{"quote":[{"open":[100,101],"high":[102,103],"low":[99,100],"close":[101,null],"volume":[10,10]}]}}],"error":null}}`, model.ErrMalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := avServer(t, tt.status, tt.body)
			f := NewYahooFetcher(testOptions(srv.URL))
			_, err := f.FetchSeries(context.Background(), model.NewSymbol("ZZZZ", model.MarketEquity), model.IntervalDaily)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
