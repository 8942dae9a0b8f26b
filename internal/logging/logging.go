// Package logging configures structured logging for logscout.
//
// Logs are emitted as JSON via log/slog. By default output goes to a
// rotating file under the data directory so that CLI output stays clean;
// verbose mode mirrors logs to stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config controls logger construction.
type Config struct {
	// Level is the minimum level to emit: debug, info, warn, error.
	Level string
	// Dir is the directory for log files. Empty disables file output.
	Dir string
	// MaxSizeMB is the rotation threshold for the log file.
	MaxSizeMB int
	// MaxBackups is how many rotated files to keep.
	MaxBackups int
	// Verbose mirrors log output to stderr.
	Verbose bool
}

// DefaultConfig returns the standard logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		MaxSizeMB:  10,
		MaxBackups: 3,
	}
}

// Setup builds a JSON slog.Logger from cfg and installs it as the
// default logger. The returned closer flushes and closes the log file;
// callers should defer it.
func Setup(cfg Config) (*slog.Logger, func() error, error) {
	var writers []io.Writer
	closer := func() error { return nil }

	if cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
			return nil, nil, err
		}
		rw, err := NewRotatingWriter(filepath.Join(cfg.Dir, "logscout.log"), cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, rw)
		closer = rw.Close
	}
	if cfg.Verbose || len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	handler := slog.NewJSONHandler(io.MultiWriter(writers...), &slog.HandlerOptions{
		Level: parseLevel(cfg.Level),
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parseLevel(s string) slog.Level {
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
