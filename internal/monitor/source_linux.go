//go:build linux
// +build linux

package monitor

import (
	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/executor"
	"go.uber.org/zap"
)

// NewTrackSource returns the MPRIS source on Linux
func NewTrackSource(logger *zap.Logger, _ executor.ScriptRunner) domain.TrackSource {
	logger.Info("Using MPRIS track source")
	return NewMprisSource(logger)
}
