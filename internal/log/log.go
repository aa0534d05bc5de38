// Package log provides structured logging for go-creatures.
// It wraps slog with sensible defaults for production use.
package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	logger *slog.Logger
	base   slog.Handler
	hook   func(r slog.Record)
	mu     sync.RWMutex
	once   sync.Once
	level  = new(slog.LevelVar)
)

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(lvl string) {
	once.Do(func() {
		level.Set(ParseLevel(lvl))
		opts := &slog.HandlerOptions{Level: level}

		// Use JSON in production, text in development
		if os.Getenv("GO_ENV") == "production" {
			setBase(slog.NewJSONHandler(os.Stdout, opts))
		} else {
			setBase(slog.NewTextHandler(os.Stdout, opts))
		}
	})
}

// SetLevel changes the level of the global logger at runtime.
func SetLevel(lvl string) {
	level.Set(ParseLevel(lvl))
}

// SetOutput replaces the global logger with a text logger writing to w.
// Tests use it to capture or silence output.
func SetOutput(w io.Writer) {
	once.Do(func() {})
	setBase(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetHook tees every record at or above the current level to fn,
// replacing any previous hook; nil removes it. The dashboard uses it to
// mirror log lines to websocket clients. Loggers obtained earlier keep
// the handler they were created with.
func SetHook(fn func(r slog.Record)) {
	L()
	mu.Lock()
	hook = fn
	l := build()
	mu.Unlock()
	slog.SetDefault(l)
}

func setBase(h slog.Handler) {
	mu.Lock()
	base = h
	l := build()
	mu.Unlock()
	slog.SetDefault(l)
}

// build rebuilds the global logger from base and hook. Caller holds mu.
func build() *slog.Logger {
	h := base
	if hook != nil {
		h = &hookHandler{Handler: base, fn: hook}
	}
	logger = slog.New(h)
	return logger
}

// L returns the global logger instance.
func L() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		Init("info")
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

// Component returns a logger tagged with the component name.
func Component(name string) *slog.Logger {
	return L().With("component", name)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
