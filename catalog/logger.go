package catalog

import "log/slog"

// Logger receives operational events from the catalog: sweep results,
// best-effort secondary failures, lifecycle messages. *slog.Logger satisfies
// it directly.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// DefaultLogger returns the process-default slog logger.
func DefaultLogger() Logger { return slog.Default() }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// NopLogger discards everything. Useful in tests.
func NopLogger() Logger { return nopLogger{} }
