//go:build !darwin
// +build !darwin

package executor

import (
	"context"

	"go.uber.org/zap"
)

// Runner is a placeholder for platforms without AppleScript.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a stub runner
func NewRunner(logger *zap.Logger) (*Runner, error) {
	logger.Debug("Script runner unavailable on this platform")
	return &Runner{logger: logger}, nil
}

// Run always returns ErrUnsupported
func (r *Runner) Run(ctx context.Context, script string) (string, error) {
	return "", ErrUnsupported
}
