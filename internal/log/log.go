// Package log builds the zap logger shared by all components.
package log

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a sugared logger for level ("debug", "info", "warn", "error").
// Debug selects the development encoder.
func New(level string) (*zap.SugaredLogger, error) {
	atomic, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if atomic.Level() == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = atomic

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("can't initialize zap logger: %v", err)
	}
	return zapLogger.Sugar(), nil
}
