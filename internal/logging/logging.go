// Package logging builds the zap logger. The TUI owns the terminal, so logs
// always go to a file.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON logger appending to path at level. verbose forces
// debug.
func New(path, level string, verbose bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.OutputPaths = []string{path}
	config.ErrorOutputPaths = []string{path}
	config.EncoderConfig.TimeKey = "ts"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.Sampling = nil

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.Int("pid", os.Getpid())), nil
}

// NewOrNop is New falling back to a no-op logger, for callers that must not
// fail because the log file is unwritable
func NewOrNop(path, level string, verbose bool) *zap.Logger {
	logger, err := New(path, level, verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tempo: logging disabled: %v\n", err)
		return zap.NewNop()
	}
	return logger
}
