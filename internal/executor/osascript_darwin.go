//go:build darwin
// +build darwin

package executor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Runner runs AppleScript through osascript.
type Runner struct {
	logger *zap.Logger
	binary string
}

// NewRunner locates osascript.
func NewRunner(logger *zap.Logger) (*Runner, error) {
	path, err := exec.LookPath("osascript")
	if err != nil {
		return nil, fmt.Errorf("osascript not found: %w", err)
	}
	logger.Info("AppleScript runner initialized", zap.String("binary", path))
	return &Runner{logger: logger, binary: path}, nil
}

// Run executes script with osascript -e.
func (r *Runner) Run(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, r.binary, "-e", script)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("osascript failed: %s", msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}
