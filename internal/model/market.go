package model

import (
	"fmt"
	"strings"
	"time"
)

// MarketType distinguishes equities from cryptocurrencies.
type MarketType string

const (
	MarketEquity MarketType = "EQUITY"
	MarketCrypto MarketType = "CRYPTO"
)

// ParseMarketType accepts the canonical names plus the "stock" alias.
func ParseMarketType(s string) (MarketType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "EQUITY", "STOCK":
		return MarketEquity, nil
	case "CRYPTO":
		return MarketCrypto, nil
	default:
		return "", fmt.Errorf("unknown market type %q", s)
	}
}

// Interval is the sampling period of a series.
type Interval string

const (
	Interval1Min    Interval = "1min"
	Interval5Min    Interval = "5min"
	Interval15Min   Interval = "15min"
	Interval30Min   Interval = "30min"
	Interval60Min   Interval = "60min"
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

var intervals = []Interval{
	Interval1Min, Interval5Min, Interval15Min, Interval30Min, Interval60Min,
	IntervalDaily, IntervalWeekly, IntervalMonthly,
}

// ParseInterval validates s against the supported intervals.
func ParseInterval(s string) (Interval, error) {
	v := Interval(strings.ToLower(strings.TrimSpace(s)))
	for _, iv := range intervals {
		if v == iv {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown interval %q", s)
}

// Intraday reports whether the interval is shorter than a day.
func (i Interval) Intraday() bool {
	switch i {
	case Interval1Min, Interval5Min, Interval15Min, Interval30Min, Interval60Min:
		return true
	}
	return false
}

// DefaultQuoteMarket is the currency crypto prices are quoted in when none is given.
const DefaultQuoteMarket = "USD"

// Symbol identifies an instrument on a market.
type Symbol struct {
	Ticker string     `json:"ticker"`
	Market MarketType `json:"market"`
	Quote  string     `json:"quote,omitempty"` // crypto quote currency
}

// NewSymbol normalizes the ticker and fills the crypto quote market.
func NewSymbol(ticker string, market MarketType) Symbol {
	s := Symbol{Ticker: strings.ToUpper(strings.TrimSpace(ticker)), Market: market}
	if market == MarketCrypto {
		s.Quote = DefaultQuoteMarket
	}
	return s
}

// DefaultCryptoSymbols are tickers treated as crypto when no market is given.
var DefaultCryptoSymbols = []string{"BTC", "ETH", "USDT", "BNB", "XRP", "ADA", "DOGE", "SOL", "DOT", "MATIC"}

// ParseSymbol reads "TICKER", "TICKER:market" or "BASE/QUOTE". Without an
// explicit market a ticker listed in cryptos is crypto, otherwise equity.
func ParseSymbol(s string, cryptos []string) (Symbol, error) {
	s = strings.TrimSpace(s)
	ticker, market, hasMarket := strings.Cut(s, ":")
	ticker, quote, hasQuote := strings.Cut(ticker, "/")
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return Symbol{}, fmt.Errorf("empty symbol in %q", s)
	}

	var mt MarketType
	switch {
	case hasMarket:
		var err error
		if mt, err = ParseMarketType(market); err != nil {
			return Symbol{}, err
		}
	case hasQuote:
		mt = MarketCrypto
	default:
		mt = MarketEquity
		for _, c := range cryptos {
			if strings.EqualFold(c, ticker) {
				mt = MarketCrypto
				break
			}
		}
	}

	sym := NewSymbol(ticker, mt)
	if mt == MarketCrypto && hasQuote && strings.TrimSpace(quote) != "" {
		sym.Quote = strings.ToUpper(strings.TrimSpace(quote))
	}
	return sym, nil
}

// QuoteMarket returns the quote currency, defaulting to USD.
func (s Symbol) QuoteMarket() string {
	if s.Quote == "" {
		return DefaultQuoteMarket
	}
	return strings.ToUpper(s.Quote)
}

func (s Symbol) String() string {
	if s.Market == MarketCrypto {
		return s.Ticker + "/" + s.QuoteMarket()
	}
	return s.Ticker
}

// Bar represents a single OHLCV sample.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// TimeSeries holds bars in strictly ascending time order.
type TimeSeries struct {
	Symbol   Symbol   `json:"symbol"`
	Interval Interval `json:"interval"`
	Bars     []Bar    `json:"bars"`
}

// Len returns the number of bars.
func (ts *TimeSeries) Len() int { return len(ts.Bars) }

// Last returns the most recent bar.
func (ts *TimeSeries) Last() (Bar, bool) {
	if len(ts.Bars) == 0 {
		return Bar{}, false
	}
	return ts.Bars[len(ts.Bars)-1], true
}

// Closes extracts closing prices in series order.
func (ts *TimeSeries) Closes() []float64 {
	closes := make([]float64, len(ts.Bars))
	for i, b := range ts.Bars {
		closes[i] = b.Close
	}
	return closes
}

// Clone returns a copy that shares no bar storage with ts.
func (ts *TimeSeries) Clone() *TimeSeries {
	c := *ts
	c.Bars = append([]Bar(nil), ts.Bars...)
	return &c
}

// Validate checks that timestamps are strictly ascending.
func (ts *TimeSeries) Validate() error {
	for i := 1; i < len(ts.Bars); i++ {
		if !ts.Bars[i].Time.After(ts.Bars[i-1].Time) {
			return fmt.Errorf("bar %d at %s is not after %s", i,
				ts.Bars[i].Time.Format(time.RFC3339), ts.Bars[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}
