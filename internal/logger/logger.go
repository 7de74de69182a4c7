// Package logger configures the process-wide zerolog logger.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogConfig selects level, format and destination.
type LogConfig struct {
	Level  string // trace, debug, info, warn, error
	Format string // console or json
	Output string // stdout, stderr or a file path
}

// DefaultConfig logs info and above to stdout in console format.
func DefaultConfig() LogConfig {
	return LogConfig{Level: "info", Format: "console", Output: "stdout"}
}

// Setup replaces the global logger. It returns the underlying writer so the
// caller can close a log file on shutdown; stdout and stderr are never closed.
func Setup(cfg LogConfig) (io.Closer, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)
	switch cfg.Output {
	case "", "stdout":
		out = os.Stdout
	case "stderr":
		out = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}

	log.Logger = New(out, cfg.Format)
	return closer, nil
}

// New builds a timestamped logger writing to w. Any format other than json
// produces human-readable console output.
func New(w io.Writer, format string) zerolog.Logger {
	if !strings.EqualFold(format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// WithComponent returns a child of the global logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return log.Logger.With().Str("component", component).Logger()
}

// WithRequestID returns a child of l tagged with a request id.
func WithRequestID(l zerolog.Logger, id string) zerolog.Logger {
	return l.With().Str("request_id", id).Logger()
}

// Ctx returns the logger stored in ctx, or the global logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
