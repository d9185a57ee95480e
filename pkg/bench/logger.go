package bench

import "log"

// Logger receives the wrapper's informational and warning events. Rendering
// is up to the application.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

// LoggerFunc adapts a plain function to Logger. level is "info" or "warn".
type LoggerFunc func(level, format string, args ...any)

func (f LoggerFunc) Infof(format string, args ...any) { f("info", format, args...) }
func (f LoggerFunc) Warnf(format string, args ...any) { f("warn", format, args...) }

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) Infof(string, ...any) {}
func (NopLogger) Warnf(string, ...any) {}

// StdLogger writes events through a standard library logger.
type StdLogger struct {
	l *log.Logger
}

// NewStdLogger wraps l; a nil l means log.Default().
func NewStdLogger(l *log.Logger) *StdLogger {
	if l == nil {
		l = log.Default()
	}
	return &StdLogger{l: l}
}

func (s *StdLogger) Infof(format string, args ...any) {
	s.l.Printf("INFO: "+format, args...)
}

func (s *StdLogger) Warnf(format string, args ...any) {
	s.l.Printf("WARN: "+format, args...)
}

// WarningsOnly forwards warnings to l and drops informational events.
func WarningsOnly(l Logger) Logger {
	return warnOnly{l}
}

type warnOnly struct {
	Logger
}

func (warnOnly) Infof(string, ...any) {}
