package logger

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides structured logging for the conversion pipeline.
type Logger struct {
	s *zap.SugaredLogger
}

// New creates a logger for the given component. Verbose enables debug level.
func New(component string, verbose bool) *Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{s: base.Named(component).Sugar()}
}

// Default returns an info-level logger with no component name.
func Default() *Logger {
	return New("", false)
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{s: zap.NewNop().Sugar()}
}

// WithPrefix creates a sub-logger scoped to a component.
func (l *Logger) WithPrefix(prefix string) *Logger {
	return &Logger{s: l.s.Named(prefix)}
}

func (l *Logger) Debug(format string, args ...any) { l.s.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.s.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...any) { l.s.Errorf(format, args...) }

// Step logs a named step with timing.
func (l *Logger) Step(name string) func() {
	start := time.Now()
	l.s.Infof("▶ %s", name)
	return func() {
		l.s.Infof("✓ %s (took %v)", name, time.Since(start).Round(time.Millisecond))
	}
}

// Tokens logs token usage for an LLM call.
func (l *Logger) Tokens(input, output int) {
	l.s.Infow("token usage", "input", input, "output", output, "total", input+output)
}

// Compilation logs a compile outcome.
func (l *Logger) Compilation(success bool, path string, diagnostic string) {
	if success {
		l.s.Infof("✓ compiled: %s", path)
		return
	}
	l.s.Errorf("✗ compilation failed")
	if diagnostic != "" {
		l.s.Errorf("  %s", diagnostic)
	}
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.s.Sync()
}
