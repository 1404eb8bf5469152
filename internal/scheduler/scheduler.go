package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"TrendSignal/internal/analyzer"
	"TrendSignal/internal/model"
	"TrendSignal/internal/notifier"
)

// Options configure the watchlist refresh.
type Options struct {
	Symbols  []model.Symbol
	Interval model.Interval
	MaxAge   time.Duration
	Workers  int
	Snapshot bool
	// CryptoSymbols infer the market of tickers given in commands.
	CryptoSymbols []string
}

// Scheduler refreshes the watchlist on a cron schedule, alerts on threshold
// crossings and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Analyzer *analyzer.Analyzer
	Notifier notifier.Notifier
	Opts     Options
	Ctx      context.Context

	mu      sync.Mutex
	alerted map[model.CacheKey]bool
	last    []notifier.WatchlistLine
	running sync.Mutex
}

// NewScheduler creates a new Scheduler. A nil notifier disables alerts.
func NewScheduler(ctx context.Context, an *analyzer.Analyzer, n notifier.Notifier, opts Options) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Interval == "" {
		opts.Interval = model.IntervalDaily
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Analyzer: an,
		Notifier: n,
		Opts:     opts,
		Ctx:      ctx,
		alerted:  make(map[model.CacheKey]bool),
	}
}

// RegisterAll registers the watchlist refresh.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register watchlist refresh: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	slog.Info("scheduler started", "symbols", len(s.Opts.Symbols), "workers", s.Opts.Workers)
}

// Stop stops the cron scheduler and waits for a running refresh.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) refreshTask() {
	if !s.running.TryLock() {
		slog.Warn("previous watchlist refresh still running, skipping")
		return
	}
	defer s.running.Unlock()
	s.RunNow(s.Ctx)
}

// RunNow analyzes every watched symbol, sends alerts for new threshold
// crossings and returns one line per symbol in watchlist order.
func (s *Scheduler) RunNow(ctx context.Context) []notifier.WatchlistLine {
	start := time.Now()
	lines := make([]notifier.WatchlistLine, len(s.Opts.Symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Opts.Workers)
	for i, sym := range s.Opts.Symbols {
		g.Go(func() error {
			res, err := s.Analyzer.Analyze(gctx, analyzer.Request{
				Symbol:   sym,
				Interval: s.Opts.Interval,
				MaxAge:   s.Opts.MaxAge,
				Snapshot: s.Opts.Snapshot,
			})
			lines[i] = notifier.WatchlistLine{Symbol: sym, Result: res, Err: err}
			if err != nil {
				slog.Warn("watchlist analysis failed", "symbol", sym.String(), "error", err)
			}
			// Per-symbol failures never cancel the others.
			return nil
		})
	}
	g.Wait()

	var alerts []*model.AnalysisResult
	s.mu.Lock()
	for _, l := range lines {
		if l.Err != nil || l.Result == nil {
			continue
		}
		key := model.KeyFor(l.Symbol, s.Opts.Interval)
		above := l.Result.Score.AlertTriggered
		if above && !s.alerted[key] {
			alerts = append(alerts, l.Result)
		}
		s.alerted[key] = above
	}
	s.last = lines
	s.mu.Unlock()

	for _, res := range alerts {
		slog.Info("alert threshold crossed", "symbol", res.Series.Symbol.String(), "score", res.Score.Total)
		s.trySend(ctx, notifier.FormatAlert(res, s.Analyzer.Scoring.AlertThreshold))
	}
	slog.Info("watchlist refreshed", "symbols", len(lines), "alerts", len(alerts), "took", time.Since(start))
	return lines
}

// Last returns the lines of the most recent refresh.
func (s *Scheduler) Last() []notifier.WatchlistLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notifier.WatchlistLine(nil), s.last...)
}

const helpText = `Available commands:
• /analyze SYMBOL [crypto|equity] [interval] - score one symbol
• /watchlist - latest watchlist scores
• /help - this message

Intervals: 1min 5min 15min 30min 60min daily weekly monthly`

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// Group chats append the bot name: /analyze@trend_bot.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	switch name {
	case "/analyze":
		req, err := s.parseAnalyze(fields[1:])
		if err != nil {
			return notifier.FormatError(err) + "\n\n" + helpText
		}
		res, err := s.Analyzer.Analyze(ctx, req)
		if err != nil {
			return notifier.FormatError(err)
		}
		return notifier.FormatAnalysis(res)
	case "/watchlist":
		lines := s.Last()
		if lines == nil {
			lines = s.RunNow(ctx)
		}
		return notifier.FormatWatchlist(lines)
	default:
		return helpText
	}
}

// parseAnalyze reads "SYMBOL [market] [interval]" in any order after the symbol.
func (s *Scheduler) parseAnalyze(args []string) (analyzer.Request, error) {
	req := analyzer.Request{Interval: s.Opts.Interval, MaxAge: s.Opts.MaxAge, Snapshot: s.Opts.Snapshot}
	if len(args) == 0 {
		return req, fmt.Errorf("missing symbol")
	}
	raw := args[0]
	for _, a := range args[1:] {
		if iv, err := model.ParseInterval(a); err == nil {
			req.Interval = iv
			continue
		}
		if _, err := model.ParseMarketType(a); err == nil {
			raw = args[0] + ":" + a
			continue
		}
		return req, fmt.Errorf("unexpected argument %q", a)
	}
	sym, err := model.ParseSymbol(raw, s.Opts.CryptoSymbols)
	if err != nil {
		return req, err
	}
	req.Symbol = sym
	return req, nil
}

func (s *Scheduler) trySend(ctx context.Context, text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(ctx, text, 3); err != nil {
		slog.Error("send notification failed", "error", err)
	}
}
