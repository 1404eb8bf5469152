package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TrendSignal/internal/analyzer"
	"TrendSignal/internal/cache"
	"TrendSignal/internal/collector"
	"TrendSignal/internal/config"
	"TrendSignal/internal/logging"
	"TrendSignal/internal/model"
	"TrendSignal/internal/notifier"
	"TrendSignal/internal/recorder"
	"TrendSignal/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		slog.Error("trendsignal failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfgPath := flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "YAML config file")
	envFile := flag.String("env-file", "", ".env file to load before environment overrides")
	symbol := flag.String("symbol", "", "symbol to analyze: TICKER, TICKER:crypto or BASE/QUOTE")
	market := flag.String("market", "", "market type override: equity or crypto")
	interval := flag.String("interval", "", "bar interval (default from config)")
	maxAge := flag.Duration("max-age", -1, "accept cached data up to this age (default from config)")
	force := flag.Bool("force", false, "bypass the cache and fetch live data")
	snapshot := flag.Bool("snapshot", false, "record the analysis")
	serve := flag.Bool("serve", false, "run the watchlist scheduler and Telegram commands")
	flag.Parse()

	var envFiles []string
	if *envFile != "" {
		envFiles = append(envFiles, *envFile)
	}
	cfg, err := config.Load(*cfgPath, envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}

	logCloser, err := logging.Setup(cfg.Logging)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init fetcher
	fetcher, err := collector.NewFetcher(cfg.Provider.Name, cfg.Provider.ClientOptions)
	if err != nil {
		return err
	}
	slog.Info("data source", "provider", fetcher.Name())

	// Init cache
	store, err := cache.Open(ctx, cfg.Cache.Options)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer store.Close()

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			slog.Warn("init sqlite recorder failed, using noop", "error", err)
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	an := analyzer.New(collector.NewCollector(fetcher, store, cfg.Cache.FetchTimeout), cfg.Indicators, cfg.Scoring, rec)

	if *serve {
		return serveLoop(ctx, cfg, an)
	}

	if *symbol == "" {
		return fmt.Errorf("-symbol is required unless -serve is set")
	}
	raw := *symbol
	if *market != "" {
		raw += ":" + *market
	}
	sym, err := model.ParseSymbol(raw, cfg.CryptoSymbols)
	if err != nil {
		return err
	}
	iv := cfg.Watchlist.Interval
	if *interval != "" {
		if iv, err = model.ParseInterval(*interval); err != nil {
			return err
		}
	}
	age := cfg.Cache.MaxAge
	if *maxAge >= 0 {
		age = *maxAge
	}

	res, err := an.Analyze(ctx, analyzer.Request{
		Symbol:       sym,
		Interval:     iv,
		MaxAge:       age,
		ForceRefresh: *force,
		Snapshot:     *snapshot,
	})
	if err != nil {
		return err
	}
	fmt.Println(notifier.FormatAnalysisText(res))
	return nil
}

func serveLoop(ctx context.Context, cfg *config.Config, an *analyzer.Analyzer) error {
	symbols, err := cfg.WatchlistSymbols()
	if err != nil {
		return err
	}

	var tn *notifier.TelegramNotifier
	var n notifier.Notifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Provider.Proxy)
		n = tn
	} else {
		slog.Warn("telegram not configured, alerts are only logged")
	}

	sched := scheduler.NewScheduler(ctx, an, n, scheduler.Options{
		Symbols:       symbols,
		Interval:      cfg.Watchlist.Interval,
		MaxAge:        cfg.Cache.MaxAge,
		Workers:       cfg.Watchlist.Workers,
		Snapshot:      cfg.Watchlist.Snapshot,
		CryptoSymbols: cfg.CryptoSymbols,
	})
	if err := sched.RegisterAll(cfg.Watchlist.Cron); err != nil {
		return err
	}
	sched.Start()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		slog.Info("telegram polling started")
	}

	// Warm the watchlist immediately instead of waiting for the first tick.
	go sched.RunNow(ctx)

	slog.Info("TrendSignal is running, press Ctrl+C to stop")
	<-ctx.Done()

	slog.Info("shutdown signal received, stopping")
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdown.Done():
		slog.Warn("scheduler did not stop in time")
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
