//go:build darwin
// +build darwin

package monitor

import (
	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/executor"
	"go.uber.org/zap"
)

// NewTrackSource returns the Music app source on macOS
func NewTrackSource(logger *zap.Logger, runner executor.ScriptRunner) domain.TrackSource {
	logger.Info("Using Music app track source")
	return NewMusicAppSource(logger, runner)
}
