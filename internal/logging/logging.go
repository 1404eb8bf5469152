// Package logging installs the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures log output.
type Options struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"` // text or json
	// File, when set, also writes logs to a rotating file.
	File       string `yaml:"file" envconfig:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" envconfig:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" envconfig:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" envconfig:"LOG_MAX_AGE_DAYS"`
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger writing to stderr and, if configured, a rotating file.
// The returned closer releases the file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, nil, err
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   true,
		}
		out = io.MultiWriter(os.Stderr, file)
		closer = file
	}

	return slog.New(newHandler(out, opts)), closer, nil
}

func newHandler(w io.Writer, opts Options) slog.Handler {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	if strings.EqualFold(opts.Format, "json") {
		return slog.NewJSONHandler(w, ho)
	}
	return slog.NewTextHandler(w, ho)
}

// Setup builds the logger and installs it as the slog default.
func Setup(opts Options) (io.Closer, error) {
	logger, closer, err := New(opts)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
