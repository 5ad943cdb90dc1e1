package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// DispatcherLogger adapts zerolog.Logger to the dispatcher.Logger interface.
// The host bridge hot path logs through zerolog to avoid slog's allocation
// per attribute.
type DispatcherLogger struct {
	logger zerolog.Logger
}

// NewDispatcherLogger creates a new DispatcherLogger wrapping a zerolog.Logger.
func NewDispatcherLogger(logger zerolog.Logger) *DispatcherLogger {
	return &DispatcherLogger{logger: logger}
}

// NewZerolog builds a timestamped zerolog logger writing JSON to w at level.
// Unknown levels fall back to info.
func NewZerolog(w io.Writer, level, component string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", component).Logger()
}

// Debug logs a debug message with optional key-value pairs.
func (l *DispatcherLogger) Debug(msg string, keysAndValues ...any) {
	l.logger.Debug().Fields(toFields(keysAndValues)).Msg(msg)
}

// Info logs an info message with optional key-value pairs.
func (l *DispatcherLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Info().Fields(toFields(keysAndValues)).Msg(msg)
}

// Warn logs a warning with optional key-value pairs.
func (l *DispatcherLogger) Warn(msg string, keysAndValues ...any) {
	l.logger.Warn().Fields(toFields(keysAndValues)).Msg(msg)
}

// Error logs an error message with optional key-value pairs.
func (l *DispatcherLogger) Error(msg string, keysAndValues ...any) {
	l.logger.Error().Fields(toFields(keysAndValues)).Msg(msg)
}

// toFields converts key-value pairs to a map for zerolog. Non-string keys
// and a trailing odd value are dropped.
func toFields(keysAndValues []any) map[string]any {
	fields := make(map[string]any, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}
