package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/genricoloni/tunecord/internal/executor"
	"go.uber.org/zap"
)

const musicRunningScript = `tell application "System Events" to (name of processes) contains "Music"`

const musicTrackScript = `
tell application "Music"
	set playerState to player state as string
	if playerState is "stopped" then
		return "stopped||||||"
	end if
	set trackName to name of current track
	set trackArtist to artist of current track
	set trackAlbum to album of current track
	set trackDuration to duration of current track
	set trackPosition to player position
	set isPlaying to (playerState is "playing")
	return trackName & "||" & trackArtist & "||" & trackAlbum & "||" & trackDuration & "||" & trackPosition & "||" & isPlaying
end tell
`

const fieldSeparator = "||"

// MusicAppSource samples the macOS Music app through AppleScript
type MusicAppSource struct {
	logger *zap.Logger
	runner executor.ScriptRunner
}

// NewMusicAppSource creates a source backed by runner
func NewMusicAppSource(logger *zap.Logger, runner executor.ScriptRunner) *MusicAppSource {
	return &MusicAppSource{logger: logger, runner: runner}
}

// Poll checks that Music is running, then reads the current track
func (s *MusicAppSource) Poll(ctx context.Context) (domain.TrackSnapshot, error) {
	running, err := s.runner.Run(ctx, musicRunningScript)
	if err != nil {
		return domain.TrackSnapshot{}, &domain.PollError{Kind: domain.PollExecutionFailed, Err: err}
	}
	if running != "true" {
		return domain.TrackSnapshot{}, domain.ErrPlayerNotRunning
	}

	out, err := s.runner.Run(ctx, musicTrackScript)
	if err != nil {
		return domain.TrackSnapshot{}, &domain.PollError{Kind: domain.PollExecutionFailed, Err: err}
	}

	return parseTrackResponse(out)
}

// parseTrackResponse decodes name||artist||album||duration||position||playing
func parseTrackResponse(response string) (domain.TrackSnapshot, error) {
	parts := strings.Split(strings.TrimSpace(response), fieldSeparator)
	if len(parts) < 6 {
		return domain.TrackSnapshot{}, &domain.PollError{
			Kind: domain.PollParseError,
			Err:  fmt.Errorf("expected 6 fields, got %d: %s", len(parts), response),
		}
	}

	if parts[0] == "stopped" {
		return domain.TrackSnapshot{}, domain.ErrPlayerNotRunning
	}

	duration, err := parseSeconds(parts[3])
	if err != nil {
		return domain.TrackSnapshot{}, &domain.PollError{Kind: domain.PollParseError, Err: fmt.Errorf("invalid duration: %w", err)}
	}

	position, err := parseSeconds(parts[4])
	if err != nil {
		return domain.TrackSnapshot{}, &domain.PollError{Kind: domain.PollParseError, Err: fmt.Errorf("invalid position: %w", err)}
	}

	return domain.TrackSnapshot{
		Name:         parts[0],
		Artist:       parts[1],
		Album:        parts[2],
		DurationSecs: duration,
		PositionSecs: position,
		IsPlaying:    parts[5] == "true",
	}, nil
}

// parseSeconds accepts a decimal comma, which AppleScript emits under some
// locales.
func parseSeconds(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
}
