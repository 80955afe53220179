// Package kit holds the shared HTTP plumbing for the tillbook server:
// zap logger construction, JSON responses, request middleware, metrics,
// and graceful server shutdown.
package kit

import "go.uber.org/zap"

// NewLogger builds a production zap logger tagged with the service name.
func NewLogger(service string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.InitialFields = map[string]any{"service": service}

	l, _ := cfg.Build()

	return l
}
