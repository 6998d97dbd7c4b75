package observability

import (
	"fmt"

	"github.com/rs/zerolog"
)

// TemporalLogger adapts zerolog to Temporal's log.Logger interface so SDK
// internals share the service's structured log stream.
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger creates a TemporalLogger that delegates to the given
// zerolog.Logger, automatically adding a "component":"temporal-sdk" field.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal-sdk").Logger()}
}

// Debug logs a message at debug level with optional key-value pairs.
func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	emit(l.logger.Debug(), msg, keyvals)
}

// Info logs a message at info level with optional key-value pairs.
func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	emit(l.logger.Info(), msg, keyvals)
}

// Warn logs a message at warn level with optional key-value pairs.
func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	emit(l.logger.Warn(), msg, keyvals)
}

// Error logs a message at error level with optional key-value pairs.
func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	emit(l.logger.Error(), msg, keyvals)
}

// emit attaches alternating key-value pairs to the event. A trailing value
// without a key is kept under "extra" rather than dropped.
func emit(ev *zerolog.Event, msg string, keyvals []interface{}) {
	i := 0
	for ; i+1 < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", keyvals[i])
		}
		ev = ev.Interface(key, keyvals[i+1])
	}
	if i < len(keyvals) {
		ev = ev.Interface("extra", keyvals[i])
	}
	ev.Msg(msg)
}
