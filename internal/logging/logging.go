// Package logging builds the process-wide structured logger.
//
// Grounded on warpcomdev-asicamera2's driver/jpeg package, which pairs
// zap structured logging with promauto metrics in the same ambient
// style this project follows.
package logging

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a *zap.Logger whose level is derived from level (one of
// "debug", "info", "warn", "error"; unrecognized values fall back to
// "info"). "debug" selects zap's human-readable development encoder;
// everything else uses the production JSON encoder, matching the
// corpus's convention of verbose console logs only in development.
func New(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	return cfg.Build()
}
