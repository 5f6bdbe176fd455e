package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrPlayerNotRunning is returned by a TrackSource when no player is
// available or nothing is loaded.
var ErrPlayerNotRunning = errors.New("player is not running")

// ErrQueueClosed is returned when a command is sent after the presence
// connection has been closed.
var ErrQueueClosed = errors.New("presence command queue closed")

// PollErrorKind classifies a failed poll.
type PollErrorKind string

const (
	// PollExecutionFailed means the OS mechanism itself failed
	PollExecutionFailed PollErrorKind = "execution failed"
	// PollParseError means the player answered with something unreadable
	PollParseError PollErrorKind = "parse error"
)

// PollError describes a poll that failed for a reason other than the player
// being absent.
type PollError struct {
	Kind PollErrorKind
	Err  error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}

// TrackSource samples what the local player is doing
// Implementations may block on OS calls and must honour ctx
type TrackSource interface {
	// Poll returns the current snapshot, ErrPlayerNotRunning, or a *PollError
	Poll(ctx context.Context) (TrackSnapshot, error)
}

// ArtworkResolver maps an artist/album pair to an image URL
type ArtworkResolver interface {
	// Resolve returns the artwork URL and true, or "" and false when none
	// could be found. It never fails loudly.
	Resolve(ctx context.Context, artist, album string) (string, bool)
}

// Fetcher retrieves remote documents
type Fetcher interface {
	// Fetch performs a GET and returns the raw body or an error
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// PresenceTransport is an open-able session with the presence broker.
// It is owned by a single goroutine and need not be safe for concurrent use.
//
//go:generate mockgen -destination=mocks/presence_transport_mock.go -package=mocks github.com/genricoloni/tunecord/internal/domain PresenceTransport
type PresenceTransport interface {
	// Connect opens (or reopens) the session
	Connect(ctx context.Context) error

	// SetActivity replaces the displayed activity
	SetActivity(ctx context.Context, activity Activity) error

	// ClearActivity removes the displayed activity
	ClearActivity(ctx context.Context) error

	// Close ends the session
	Close() error
}

// PresenceSink accepts presence commands. Sends are fire-and-forget: a nil
// error only means the command was queued.
//
//go:generate mockgen -destination=mocks/presence_sink_mock.go -package=mocks github.com/genricoloni/tunecord/internal/domain PresenceSink
type PresenceSink interface {
	UpdatePlaying(ctx context.Context, track TrackSnapshot, artworkURL string, opts PresenceOptions) error
	SetPaused(ctx context.Context, track TrackSnapshot, artworkURL string, opts PresenceOptions) error
	ClearPresence(ctx context.Context) error
}

// StatusReader exposes the connection status to outside readers
type StatusReader interface {
	Status() ConnectionStatus
}

// PreferencesStore provides read access to the user preferences
type PreferencesStore interface {
	// Snapshot returns a copy of the current preferences
	Snapshot() Preferences
}

// PreferencesWriter persists new preferences
type PreferencesWriter interface {
	Save(prefs Preferences) error
}

// TrackReader exposes the most recently observed track
type TrackReader interface {
	// CurrentTrack returns the latest snapshot, or nil when nothing is playing
	CurrentTrack() *TrackSnapshot
}
