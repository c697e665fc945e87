// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Quiet drops everything below error, which
// keeps the console clean while the run log files still receive the full
// pipeline output through the log stream.
func New(quiet bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	if quiet {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
