package domain

// TrackSnapshot is one sampled observation of the player.
type TrackSnapshot struct {
	// Name of the current track
	Name string `json:"name"`
	// Artist name
	Artist string `json:"artist"`
	// Album name, may be empty
	Album string `json:"album"`
	// DurationSecs is the track length in seconds
	DurationSecs float64 `json:"durationSecs"`
	// PositionSecs is the playback position in seconds
	PositionSecs float64 `json:"positionSecs"`
	// IsPlaying is false when the player is paused
	IsPlaying bool `json:"isPlaying"`
}

// SameIdentity reports whether two snapshots describe the same track in the
// same playback state. Position and duration drift are ignored.
func (t TrackSnapshot) SameIdentity(o TrackSnapshot) bool {
	return t.Name == o.Name &&
		t.Artist == o.Artist &&
		t.Album == o.Album &&
		t.IsPlaying == o.IsPlaying
}

// TracksDiffer reports whether moving from a to b is a meaningful change.
// A nil snapshot means nothing is playing.
func TracksDiffer(a, b *TrackSnapshot) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil || b == nil:
		return true
	default:
		return !a.SameIdentity(*b)
	}
}

// DisplayFormat selects which field is shown on the primary line.
type DisplayFormat string

const (
	// FormatSongArtist shows the song first, then the artist
	FormatSongArtist DisplayFormat = "songArtist"
	// FormatArtistSong shows the artist first, then the song
	FormatArtistSong DisplayFormat = "artistSong"
)

// IdleBehavior decides what happens to presence while the player is paused.
type IdleBehavior string

const (
	// IdleClearStatus removes the presence while paused
	IdleClearStatus IdleBehavior = "clearStatus"
	// IdleShowPaused keeps the presence with a "Paused" state
	IdleShowPaused IdleBehavior = "showPaused"
)

// PresenceOptions is the display-related subset of preferences. Every command
// carries its own copy.
type PresenceOptions struct {
	ShowTimestamps bool
	ShowAlbumArt   bool
	DisplayFormat  DisplayFormat
}

// Poll interval bounds in seconds.
const (
	MinPollIntervalSecs     = 2
	MaxPollIntervalSecs     = 15
	DefaultPollIntervalSecs = 5
)

// Preferences holds the user-facing settings.
type Preferences struct {
	Enabled          bool          `json:"enableOnLaunch" koanf:"enableOnLaunch"`
	ShowAlbumArt     bool          `json:"showAlbumArt" koanf:"showAlbumArt"`
	ShowTimestamps   bool          `json:"showTimestamps" koanf:"showTimestamps"`
	DisplayFormat    DisplayFormat `json:"displayFormat" koanf:"displayFormat"`
	IdleBehavior     IdleBehavior  `json:"idleBehavior" koanf:"idleBehavior"`
	PollIntervalSecs int           `json:"pollIntervalSecs" koanf:"pollIntervalSecs"`
	// LaunchAtLogin is stored for the desktop shell; the daemon never reads it
	LaunchAtLogin    bool          `json:"launchAtLogin" koanf:"launchAtLogin"`
}

// DefaultPreferences returns the settings used when nothing is stored yet.
func DefaultPreferences() Preferences {
	return Preferences{
		Enabled:          true,
		ShowAlbumArt:     true,
		ShowTimestamps:   true,
		DisplayFormat:    FormatSongArtist,
		IdleBehavior:     IdleClearStatus,
		PollIntervalSecs: DefaultPollIntervalSecs,
	}
}

// PollInterval returns the poll interval clamped to the supported range.
func (p Preferences) PollInterval() int {
	switch {
	case p.PollIntervalSecs < MinPollIntervalSecs:
		return MinPollIntervalSecs
	case p.PollIntervalSecs > MaxPollIntervalSecs:
		return MaxPollIntervalSecs
	default:
		return p.PollIntervalSecs
	}
}

// Options extracts the presence options carried on commands.
func (p Preferences) Options() PresenceOptions {
	return PresenceOptions{
		ShowTimestamps: p.ShowTimestamps,
		ShowAlbumArt:   p.ShowAlbumArt,
		DisplayFormat:  p.DisplayFormat,
	}
}

// ConnectionState is the lifecycle state of the presence connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateError        ConnectionState = "error"
)

// ConnectionStatus is the published connection state. Message is only set
// for StateError.
type ConnectionStatus struct {
	State   ConnectionState `json:"state"`
	Message string          `json:"message,omitempty"`
}

// ActivityType mirrors the broker's activity kinds we use.
type ActivityType int

// ActivityListening renders as "Listening to ..."
const ActivityListening ActivityType = 2

// Activity is the payload pushed to the presence broker. Zero timestamps are
// omitted.
type Activity struct {
	Type       ActivityType
	Details    string
	State      string
	StartUnix  int64
	EndUnix    int64
	LargeImage string
	LargeText  string
	SmallImage string
	SmallText  string
}
