package blackboard

import (
	"time"

	"github.com/rs/zerolog"
)

// ScriptLogEvent describes a script evaluation attempt for logging.
type ScriptLogEvent struct {
	Engine   string
	Expr     string
	Board    string
	Duration time.Duration
	Err      error
}

// ScriptLogger records script evaluation events.
type ScriptLogger interface {
	LogScript(ScriptLogEvent)
}

// ScriptLoggerFunc adapts a function to ScriptLogger.
type ScriptLoggerFunc func(ScriptLogEvent)

// LogScript implements ScriptLogger.
func (f ScriptLoggerFunc) LogScript(event ScriptLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopScriptLogger struct{}

func (noopScriptLogger) LogScript(ScriptLogEvent) {}

// WithScriptLogger attaches a script logger to the blackboard.
func WithScriptLogger(logger ScriptLogger) Option {
	return func(cfg *boardConfig) {
		if logger == nil {
			cfg.logger = noopScriptLogger{}
			return
		}
		cfg.logger = logger
	}
}

// NewZerologScriptLogger adapts a zerolog.Logger to ScriptLogger. Successful
// evaluations log at debug level, failures at error level.
func NewZerologScriptLogger(logger zerolog.Logger) ScriptLogger {
	return ScriptLoggerFunc(func(event ScriptLogEvent) {
		entry := logger.Debug()
		if event.Err != nil {
			entry = logger.Error().Err(event.Err)
		}
		entry.
			Str("engine", event.Engine).
			Str("expr", event.Expr).
			Str("board", event.Board).
			Dur("duration", event.Duration).
			Msg("script evaluated")
	})
}
