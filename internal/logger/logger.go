// Package logger provides the engine's structured logging, in the style of
// gcsfuse's internal/logger package: a small severity scheme layered over
// the standard library's log/slog, so every line's level field carries the
// engine's severity names (TRACE/DEBUG/INFO/WARNING/ERROR) regardless of
// handler (text or JSON).
package logger

import (
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// Severity levels, mapped onto slog levels so filtering composes with the
// standard library's leveling.
const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelError   = slog.LevelError
)

var levelNames = map[slog.Leveler]string{
	LevelTrace:   "TRACE",
	LevelDebug:   "DEBUG",
	LevelInfo:    "INFO",
	LevelWarning: "WARNING",
	LevelError:   "ERROR",
}

// New builds a *slog.Logger that renders the engine's severity names and
// tags every line with a session id, so concurrent mounts (or concurrent
// test runs) can be told apart in shared logs.
func New(w *os.File, json bool) (*slog.Logger, string) {
	session := uuid.New().String()

	opts := &slog.HandlerOptions{
		Level: LevelTrace,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				level := a.Value.Any().(slog.Level)
				if name, ok := levelNames[level]; ok {
					a.Value = slog.StringValue(name)
				}
			}
			return a
		},
	}

	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler).With("session", session), session
}

// WithOp returns a logger tagged with the dispatcher operation name, used
// where the engine logs an operation's events so those lines carry the
// operation as context.
func WithOp(l *slog.Logger, op string) *slog.Logger {
	return l.With("op", op)
}
