package reflux

import (
	"context"
	"time"
)

// Logger is the logging interface consumed by this module.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// MetricsHook is called after each handled dispatch completes.
// Unmatched actions do not reach the hook.
type MetricsHook interface {
	OnDispatch(definition, tag string, duration time.Duration)
}

// ReducerOption configures a synthesized reducer.
type ReducerOption func(*reducerConfig)

// reducerConfig holds all reducer configuration.
type reducerConfig struct {
	logger      Logger
	metricsHook MetricsHook
	journal     Journal
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger Logger) ReducerOption {
	return func(c *reducerConfig) {
		c.logger = logger
	}
}

// WithMetricsHook sets the metrics hook invoked after each handled dispatch.
func WithMetricsHook(hook MetricsHook) ReducerOption {
	return func(c *reducerConfig) {
		c.metricsHook = hook
	}
}

// WithJournal records every handled dispatch to j. Append failures do not
// fail the dispatch; they are reported through the logger when one is set.
func WithJournal(j Journal) ReducerOption {
	return func(c *reducerConfig) {
		c.journal = j
	}
}

// afterDispatch runs the configured side channels for one handled dispatch.
func (c *reducerConfig) afterDispatch(definition, tag string, action Action, duration time.Duration) {
	if c.metricsHook != nil {
		c.metricsHook.OnDispatch(definition, tag, duration)
	}
	if c.logger != nil {
		c.logger.Debug("reflux: handled action", "definition", definition, "tag", tag, "duration", duration)
	}
	if c.journal != nil {
		if err := journalDispatch(context.Background(), c.journal, definition, tag, action); err != nil && c.logger != nil {
			c.logger.Error("reflux: journal append failed", "definition", definition, "tag", tag, "error", err)
		}
	}
}
