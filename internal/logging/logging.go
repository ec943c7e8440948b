// Package logging builds the structured logger shared by every subsystem.
package logging

import (
	"go.uber.org/zap"
)

// New builds a sugared logger from zap's development profile when
// development is true and its production profile otherwise, with stack
// traces disabled in both. Components receive a
// *zap.SugaredLogger through their constructors rather than reaching for a
// package-level global, the same way storage.Store is threaded through
// processor.Processor in the original command loop.
func New(development bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Noop returns a logger that discards everything, for tests that don't
// want to assert on log output.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
