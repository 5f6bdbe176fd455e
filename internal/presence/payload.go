package presence

import (
	"time"

	"github.com/genricoloni/tunecord/internal/domain"
)

// Framing selects how a track is presented.
type Framing int

const (
	// FramePlaying shows live state text and timestamps
	FramePlaying Framing = iota
	// FramePaused shows a static "Paused" state without timestamps
	FramePaused
)

func (f Framing) String() string {
	if f == FramePaused {
		return "paused"
	}
	return "playing"
}

const (
	// MaxTextLength is the broker's limit per text field, in characters
	MaxTextLength = 128

	// PlaceholderImage is the asset key shown when no artwork is available
	PlaceholderImage = "music_logo"
	brandText        = "tunecord"
	pausedText       = "Paused"
)

// BuildActivity shapes a track into a broker payload.
func BuildActivity(framing Framing, track domain.TrackSnapshot, artworkURL string, opts domain.PresenceOptions, now time.Time) domain.Activity {
	primary, secondary := track.Name, "by "+track.Artist
	if opts.DisplayFormat == domain.FormatArtistSong {
		primary, secondary = track.Artist, track.Name
	}

	state := secondary
	if framing == FramePaused {
		state = pausedText
	}

	largeText := track.Album
	if largeText == "" {
		largeText = track.Name
	}

	activity := domain.Activity{
		Type:       domain.ActivityListening,
		Details:    truncate(primary, MaxTextLength),
		State:      truncate(state, MaxTextLength),
		LargeImage: PlaceholderImage,
		LargeText:  truncate(largeText, MaxTextLength),
	}

	if opts.ShowAlbumArt && artworkURL != "" {
		activity.LargeImage = artworkURL
		activity.SmallImage = PlaceholderImage
		activity.SmallText = brandText
	}

	if framing == FramePlaying && opts.ShowTimestamps {
		start := now.Unix() - int64(track.PositionSecs)
		activity.StartUnix = start
		if track.DurationSecs > 0 {
			activity.EndUnix = start + int64(track.DurationSecs)
		}
	}

	return activity
}

// truncate cuts s to at most max characters without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}
