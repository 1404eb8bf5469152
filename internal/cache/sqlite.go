package cache

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

// SQLiteStore persists snapshots in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dbPath != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL keeps readers from blocking the refresh writer.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Info("sqlite cache opened", "path", dbPath)
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS series_cache (
		key        TEXT PRIMARY KEY,
		fetched_at INTEGER NOT NULL,
		payload    TEXT NOT NULL
	)`)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key model.CacheKey) (model.CacheEntry, bool, error) {
	var payload string
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at, payload FROM series_cache WHERE key = ?`, key.String(),
	).Scan(&fetchedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.CacheEntry{}, false, nil
	}
	if err != nil {
		return model.CacheEntry{}, false, unavailable("sqlite get", key, err)
	}

	series, _, err := decodeSeries([]byte(payload))
	if err != nil {
		return model.CacheEntry{}, false, unavailable("sqlite get", key, err)
	}
	return model.CacheEntry{
		Key:        key,
		Series:     series,
		FetchedAt:  time.Unix(0, fetchedAt).UTC(),
		Provenance: model.ProvenanceCache,
	}, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, key model.CacheKey, series *model.TimeSeries, fetchedAt time.Time) error {
	data, err := encodeSeries(series, fetchedAt)
	if err != nil {
		return unavailable("sqlite put", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `INSERT INTO series_cache (key, fetched_at, payload)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET fetched_at = excluded.fetched_at, payload = excluded.payload
		WHERE excluded.fetched_at >= series_cache.fetched_at`,
		key.String(), fetchedAt.UnixNano(), string(data),
	)
	if err != nil {
		return unavailable("sqlite put", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	slog.Info("closing sqlite cache")
	return s.db.Close()
}
