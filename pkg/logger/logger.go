// Package logger provides the structured logging setup shared by every
// subsystem of the VSI core. It wraps zap so that callers deal in a single
// *zap.SugaredLogger, scoped to the subsystem that created it, instead of
// wiring up encoders and levels themselves at each call site.
package logger

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	baseOnce sync.Once
	base     *zap.Logger
)

// New returns a SugaredLogger scoped to the given subsystem name (e.g.
// "signal", "alloc", "catalog"). All loggers returned by New share the same
// underlying core, so their output interleaves consistently across
// subsystems.
func New(subsystem string) *zap.SugaredLogger {
	baseOnce.Do(func() {
		base = newBase()
	})
	return base.Named(subsystem).Sugar()
}

func newBase() *zap.Logger {
	level := zapcore.InfoLevel
	if os.Getenv("VSI_DEBUG") != "" {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		// Fall back to a no-op core rather than panicking on logger
		// construction failure; the process should still function.
		return zap.NewNop()
	}
	return l
}
