// Package logging provides the structured, context-aware logger shared by
// the mailbox core and the actor runtime that consumes it. It wraps
// log/slog with the "S"-suffixed key/value call shape
// (DebugS(ctx, msg, kv...)) that internal/baselib/actor already assumes,
// and can fan its records into a btclog.Handler (console, rotating file, or
// both) so the binaries built on top of this module get lnd-style
// dual-stream logging for free.
package logging

import (
	"context"
	"log/slog"
)

// levelTrace sits below slog.LevelDebug, matching the convention used by
// logging packages that distinguish "trace" from "debug" on top of slog's
// four built-in levels.
const levelTrace = slog.Level(-8)

// Logger is a thin, subsystem-tagged wrapper around *slog.Logger exposing
// the structured key/value logging calls used throughout this module.
type Logger struct {
	inner *slog.Logger
}

// New wraps the given slog.Logger.
func New(inner *slog.Logger) *Logger {
	return &Logger{inner: inner}
}

// NewSubsystem returns a Logger tagged with a "subsystem" attribute, mirroring
// btclog's per-subsystem logger convention.
func (l *Logger) NewSubsystem(name string) *Logger {
	return &Logger{inner: l.inner.With("subsystem", name)}
}

// TraceS logs at trace level, below slog's Debug.
func (l *Logger) TraceS(ctx context.Context, msg string, kv ...any) {
	l.inner.Log(ctx, levelTrace, msg, kv...)
}

// DebugS logs at debug level.
func (l *Logger) DebugS(ctx context.Context, msg string, kv ...any) {
	l.inner.DebugContext(ctx, msg, kv...)
}

// InfoS logs at info level.
func (l *Logger) InfoS(ctx context.Context, msg string, kv ...any) {
	l.inner.InfoContext(ctx, msg, kv...)
}

// WarnS logs at warn level. Unlike the other levels, it takes an explicit
// error argument up front, matching internal/baselib/actor's call shape
// (log.WarnS(ctx, msg, err, kv...)).
func (l *Logger) WarnS(ctx context.Context, msg string, err error, kv ...any) {
	args := append([]any{"error", err}, kv...)
	l.inner.WarnContext(ctx, msg, args...)
}

// ErrorS logs at error level.
func (l *Logger) ErrorS(ctx context.Context, msg string, err error, kv ...any) {
	args := append([]any{"error", err}, kv...)
	l.inner.ErrorContext(ctx, msg, args...)
}

// Disabled returns a Logger that discards everything, used as the default so
// packages never need a nil check before logging.
func Disabled() *Logger {
	return New(slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{
		Level: slog.Level(100),
	})))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
