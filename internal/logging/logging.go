// Package logging constructs the structured logger used by the CLI and
// the archive backend. The engine packages stay silent; logging is an
// edge concern.
package logging

import "go.uber.org/zap"

// New returns a production logger, or a human-readable development logger
// when debug is set.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.DisableStacktrace = true
	return cfg.Build()
}
