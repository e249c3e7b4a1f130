// Package logging provides zap logger helpers for the crawler binary. Every
// logger it builds stamps a "service" field so lines from this program are
// distinguishable in an operator's aggregated log stream from day one,
// before the orchestrator has a run id to attach with WithRun.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// service is the value of every logger's "service" initial field.
const service = "reconcrawl"

// New builds a zap.Logger configured for development or production.
func New(development bool) (*zap.Logger, error) {
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		cfg.InitialFields = map[string]any{"service": service}
		logger, err := cfg.Build()
		if err != nil {
			return nil, fmt.Errorf("build dev logger: %w", err)
		}
		return logger, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = false
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.InitialFields = map[string]any{"service": service}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build prod logger: %w", err)
	}
	return logger, nil
}

// WithRun returns a child logger carrying the crawl's run id, so every log
// line emitted once the orchestrator has generated one (internal/runid) can
// be correlated across a single run without threading the id through every
// call site by hand.
func WithRun(logger *zap.Logger, runID string) *zap.Logger {
	return logger.With(zap.String("run_id", runID))
}
