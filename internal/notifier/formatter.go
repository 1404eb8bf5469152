package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"TrendSignal/internal/model"
)

// round renders v with places decimals, rounding half away from zero.
func round(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

func signedPct(v float64) string {
	d := decimal.NewFromFloat(v).Mul(decimal.NewFromInt(100)).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// StaleNote renders the stale contract as "stale (age, reason)". It is empty
// for fresh results.
func StaleNote(res *model.AnalysisResult) string {
	if !res.Stale {
		return ""
	}
	reason := "unknown"
	if res.StaleReason != nil {
		reason = res.StaleReason.Error()
		if kind := model.KindOf(res.StaleReason); kind != nil {
			reason = kind.Error()
		}
	}
	return fmt.Sprintf("stale (%s, %s)", res.Age().Round(time.Second), reason)
}

// FormatAnalysis renders a full analysis report.
func FormatAnalysis(res *model.AnalysisResult) string {
	var b strings.Builder
	sym, interval := "?", model.Interval("")
	if res.Series != nil {
		sym, interval = res.Series.Symbol.String(), res.Series.Interval
	}

	fmt.Fprintf(&b, "📊 <b>%s</b> %s | %s\n\n", html.EscapeString(sym), interval,
		res.AnalyzedAt.UTC().Format("2006-01-02 15:04 MST"))

	if res.Series != nil {
		if bar, ok := res.Series.Last(); ok {
			fmt.Fprintf(&b, "Close: %s | Volume: %s\n", round(bar.Close, 2), round(bar.Volume, 0))
		}
	}
	if ind := res.Indicators; ind != nil {
		fast, _ := ind.EMAFast.Last()
		slow, _ := ind.EMASlow.Last()
		macd, _ := ind.MACDLine.Last()
		sig, _ := ind.MACDSignal.Last()
		hist, _ := ind.MACDHistogram.Last()
		rsi, _ := ind.RSI.Last()
		spread := 0.0
		if slow != 0 {
			spread = (fast - slow) / slow
		}
		fmt.Fprintf(&b, "EMA%d: %s | EMA%d: %s (%s)\n", ind.Params.EMAFast, round(fast, 2),
			ind.Params.EMASlow, round(slow, 2), signedPct(spread))
		fmt.Fprintf(&b, "MACD: %s | Signal: %s | Hist: %s\n", round(macd, 4), round(sig, 4), round(hist, 4))
		fmt.Fprintf(&b, "RSI(%d): %s\n\n", ind.Params.RSIPeriod, round(rsi, 1))
	}

	if s := res.Score; s != nil {
		b.WriteString("📈 <b>Score breakdown:</b>\n")
		for _, c := range s.Breakdown.Components() {
			fmt.Fprintf(&b, "  %s: %s/%s (%s)\n", c.Name, round(c.Points, 1), round(c.MaxPoints, 0),
				html.EscapeString(c.Rationale))
		}
		b.WriteString("  ─────────────────\n")
		fmt.Fprintf(&b, "  Total: <b>%s</b> → %s\n", round(s.Total, 1), s.Tier.Label)
		if s.AlertTriggered {
			b.WriteString("  🔔 alert threshold reached\n")
		}
	}

	fmt.Fprintf(&b, "\nSource: %s, fetched %s", res.Provenance, res.FetchedAt.UTC().Format("2006-01-02 15:04 MST"))
	if note := StaleNote(res); note != "" {
		fmt.Fprintf(&b, "\n⚠️ %s", html.EscapeString(note))
	}
	if res.SnapshotID != "" {
		fmt.Fprintf(&b, "\nSnapshot: %s", res.SnapshotID)
	}
	return b.String()
}

var tagStripper = strings.NewReplacer("<b>", "", "</b>", "")

// PlainText turns a message built by this package into terminal text.
// Only <b> markup is emitted, and every value inside it is escaped.
func PlainText(msg string) string {
	return html.UnescapeString(tagStripper.Replace(msg))
}

// FormatAnalysisText renders the analysis report without HTML markup.
func FormatAnalysisText(res *model.AnalysisResult) string {
	return PlainText(FormatAnalysis(res))
}

// FormatAlert renders the short message sent when a watched symbol crosses
// the alert threshold.
func FormatAlert(res *model.AnalysisResult, threshold float64) string {
	sym := "?"
	if res.Series != nil {
		sym = res.Series.Symbol.String()
	}
	msg := fmt.Sprintf("🔔 <b>%s</b> score %s crossed %s (%s)",
		html.EscapeString(sym), round(res.Score.Total, 1), round(threshold, 0), res.Score.Tier.Label)
	if note := StaleNote(res); note != "" {
		msg += "\n⚠️ " + html.EscapeString(note)
	}
	return msg
}

// WatchlistLine is one row of the watchlist summary.
type WatchlistLine struct {
	Symbol model.Symbol
	Result *model.AnalysisResult
	Err    error
}

// FormatWatchlist renders one line per watched symbol.
func FormatWatchlist(lines []WatchlistLine) string {
	var b strings.Builder
	b.WriteString("📋 <b>Watchlist</b>\n\n")
	if len(lines) == 0 {
		b.WriteString("(empty)")
		return b.String()
	}
	for _, l := range lines {
		name := html.EscapeString(l.Symbol.String())
		switch {
		case l.Err != nil:
			kind := model.KindOf(l.Err)
			if kind == nil {
				kind = l.Err
			}
			fmt.Fprintf(&b, "❌ %s: %s\n", name, html.EscapeString(kind.Error()))
		case l.Result != nil && l.Result.Score != nil:
			mark := "•"
			if l.Result.Score.AlertTriggered {
				mark = "🔔"
			}
			fmt.Fprintf(&b, "%s %s: %s %s", mark, name, round(l.Result.Score.Total, 1), l.Result.Score.Tier.Label)
			if l.Result.Stale {
				b.WriteString(" (stale)")
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatError renders a failed command.
func FormatError(err error) string {
	return "❌ " + html.EscapeString(err.Error())
}
