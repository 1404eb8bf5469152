package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"TrendSignal/internal/model"
)

// SQLiteRecorder persists analysis snapshots to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create recorder dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for concurrent readers (dashboards) while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite recorder opened", "path", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS analysis_snapshots (
			id                TEXT PRIMARY KEY,
			symbol            TEXT NOT NULL,
			market            TEXT NOT NULL,
			interval          TEXT NOT NULL,
			analyzed_at       INTEGER NOT NULL,
			fetched_at        INTEGER NOT NULL,
			provenance        TEXT,
			stale             INTEGER,
			close             REAL,
			volume            REAL,
			avg_volume        REAL,
			ema_fast          REAL,
			ema_slow          REAL,
			macd              REAL,
			macd_signal       REAL,
			macd_histogram    REAL,
			rsi               REAL,
			macd_score        REAL,
			ema_trend_score   REAL,
			volume_score      REAL,
			price_vs_ema_score REAL,
			rsi_score         REAL,
			total_score       REAL,
			tier_label        TEXT,
			alert             INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analysis_key_ts ON analysis_snapshots(symbol, market, interval, analyzed_at)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

const snapshotColumns = `id, symbol, market, interval, analyzed_at, fetched_at, provenance, stale,
	close, volume, avg_volume, ema_fast, ema_slow, macd, macd_signal, macd_histogram, rsi,
	macd_score, ema_trend_score, volume_score, price_vs_ema_score, rsi_score,
	total_score, tier_label, alert`

func (r *SQLiteRecorder) RecordAnalysis(ctx context.Context, res *model.AnalysisResult) (string, error) {
	s := NewSnapshot(res)

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO analysis_snapshots (`+snapshotColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.Symbol, string(s.Market), string(s.Interval),
		s.AnalyzedAt.UnixNano(), s.FetchedAt.UnixNano(), string(s.Provenance), s.Stale,
		s.Close, s.Volume, s.AvgVolume, s.EMAFast, s.EMASlow,
		s.MACD, s.MACDSignal, s.MACDHistogram, s.RSI,
		s.MACDScore, s.EMATrendScore, s.VolumeScore, s.PriceVsEMAScore, s.RSIScore,
		s.TotalScore, s.TierLabel, s.Alert,
	)
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return s.ID, nil
}

func (r *SQLiteRecorder) LatestAnalysis(ctx context.Context, key model.CacheKey) (*Snapshot, bool, error) {
	var (
		s                     Snapshot
		market, iv, prov      string
		analyzedAt, fetchedAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM analysis_snapshots
		WHERE symbol = ? AND market = ? AND interval = ?
		ORDER BY analyzed_at DESC LIMIT 1`,
		key.Symbol, string(key.Market), string(key.Interval),
	).Scan(
		&s.ID, &s.Symbol, &market, &iv, &analyzedAt, &fetchedAt, &prov, &s.Stale,
		&s.Close, &s.Volume, &s.AvgVolume, &s.EMAFast, &s.EMASlow,
		&s.MACD, &s.MACDSignal, &s.MACDHistogram, &s.RSI,
		&s.MACDScore, &s.EMATrendScore, &s.VolumeScore, &s.PriceVsEMAScore, &s.RSIScore,
		&s.TotalScore, &s.TierLabel, &s.Alert,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query latest snapshot: %w", err)
	}
	s.Market = model.MarketType(market)
	s.Interval = model.Interval(iv)
	s.Provenance = model.Provenance(prov)
	s.AnalyzedAt = time.Unix(0, analyzedAt).UTC()
	s.FetchedAt = time.Unix(0, fetchedAt).UTC()
	return &s, true, nil
}

func (r *SQLiteRecorder) Close() error {
	slog.Info("closing sqlite recorder")
	return r.db.Close()
}
