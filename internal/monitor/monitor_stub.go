//go:build !linux && !darwin
// +build !linux,!darwin

package monitor

import (
	"context"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/executor"
	"go.uber.org/zap"
)

// stubSource never sees a player
type stubSource struct{}

// NewTrackSource returns a source that reports no player on unsupported platforms
func NewTrackSource(logger *zap.Logger, _ executor.ScriptRunner) domain.TrackSource {
	logger.Warn("No player integration for this platform, presence will stay idle")
	return stubSource{}
}

func (stubSource) Poll(ctx context.Context) (domain.TrackSnapshot, error) {
	return domain.TrackSnapshot{}, domain.ErrPlayerNotRunning
}
