// Package logging builds the process-wide slog handler: colorized tint output on
// a terminal, JSON everywhere else, both behind credential redaction.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"infergate/config"
)

// ParseLevel maps a level name onto slog.Level. Unknown names mean info.
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

// NewHandler returns the handler for cfg writing to w.
func NewHandler(cfg config.LogConfig, w io.Writer) slog.Handler {
	level := ParseLevel(cfg.Level)
	tty := isTerminal(w)

	var inner slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		inner = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		inner = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.TimeOnly, NoColor: !tty})
	default:
		if tty {
			inner = tint.NewHandler(w, &tint.Options{Level: level, TimeFormat: time.TimeOnly})
		} else {
			inner = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
		}
	}

	return NewRedactingHandler(inner)
}

// Setup installs the handler for cfg as the slog default, writing to stderr.
func Setup(cfg config.LogConfig) *slog.Logger {
	logger := slog.New(NewHandler(cfg, os.Stderr))
	slog.SetDefault(logger)
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
