package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/genricoloni/tunecord/internal/domain"
	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	mprisPrefix     = "org.mpris.MediaPlayer2."
	mprisObjectPath = "/org/mpris/MediaPlayer2"
	propMetadata    = "org.mpris.MediaPlayer2.Player.Metadata"
	propStatus      = "org.mpris.MediaPlayer2.Player.PlaybackStatus"
	propPosition    = "org.mpris.MediaPlayer2.Player.Position"
)

var errNothingLoaded = errors.New("player has no track loaded")

// MprisSource samples MPRIS players on the session bus. A playing player
// wins over a paused one; ties go to the first name in sorted order.
type MprisSource struct {
	logger  *zap.Logger
	mu      sync.Mutex
	conn    DBusClient // Interface for testability
	connect func() (DBusClient, error)
}

// NewMprisSource creates a source that connects to the bus lazily
func NewMprisSource(logger *zap.Logger) *MprisSource {
	return &MprisSource{
		logger: logger,
		connect: func() (DBusClient, error) {
			return NewStdDBusClient()
		},
	}
}

// Poll returns the snapshot of the most relevant player
func (s *MprisSource) Poll(ctx context.Context) (domain.TrackSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.TrackSnapshot{}, &domain.PollError{Kind: domain.PollExecutionFailed, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.connect()
		if err != nil {
			return domain.TrackSnapshot{}, &domain.PollError{
				Kind: domain.PollExecutionFailed,
				Err:  fmt.Errorf("session bus connection failed: %w", err),
			}
		}
		s.conn = conn
	}

	names, err := s.conn.ListNames()
	if err != nil {
		// Reconnect on the next poll
		s.dropConn()
		return domain.TrackSnapshot{}, &domain.PollError{
			Kind: domain.PollExecutionFailed,
			Err:  fmt.Errorf("failed to list bus names: %w", err),
		}
	}

	players := make([]string, 0, len(names))
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	sort.Strings(players)

	var paused *domain.TrackSnapshot
	for _, player := range players {
		snap, err := s.readPlayer(player)
		if err != nil {
			s.logger.Debug("Skipping MPRIS player", zap.String("player", player), zap.Error(err))
			continue
		}
		if snap.IsPlaying {
			return snap, nil
		}
		if paused == nil {
			paused = &snap
		}
	}

	if paused != nil {
		return *paused, nil
	}
	return domain.TrackSnapshot{}, domain.ErrPlayerNotRunning
}

// Close releases the bus connection
func (s *MprisSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *MprisSource) dropConn() {
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("Failed to close D-Bus connection", zap.Error(err))
	}
	s.conn = nil
}

// readPlayer reads one player. Stopped players and players without a
// title report errNothingLoaded.
func (s *MprisSource) readPlayer(player string) (domain.TrackSnapshot, error) {
	statusVariant, err := s.conn.GetProperty(player, mprisObjectPath, propStatus)
	if err != nil {
		return domain.TrackSnapshot{}, fmt.Errorf("failed to get playback status: %w", err)
	}

	status, ok := statusVariant.Value().(string)
	if !ok {
		return domain.TrackSnapshot{}, fmt.Errorf("invalid playback status format")
	}
	if status != "Playing" && status != "Paused" {
		return domain.TrackSnapshot{}, errNothingLoaded
	}

	variant, err := s.conn.GetProperty(player, mprisObjectPath, propMetadata)
	if err != nil {
		return domain.TrackSnapshot{}, fmt.Errorf("failed to get metadata: %w", err)
	}

	// SAFE CAST: Some players may return nil or unexpected types if not playing anything
	metadata, ok := variant.Value().(map[string]dbus.Variant)
	if !ok {
		return domain.TrackSnapshot{}, errNothingLoaded
	}

	snap := s.parseMetadata(metadata)
	if snap.Name == "" {
		return domain.TrackSnapshot{}, errNothingLoaded
	}
	snap.IsPlaying = status == "Playing"

	// Position is optional; some players do not implement it
	if posVariant, err := s.conn.GetProperty(player, mprisObjectPath, propPosition); err == nil {
		if us, ok := microseconds(posVariant.Value()); ok {
			snap.PositionSecs = float64(us) / 1e6
		}
	}

	return snap, nil
}

// parseMetadata converts MPRIS metadata to a snapshot
func (s *MprisSource) parseMetadata(metadata map[string]dbus.Variant) domain.TrackSnapshot {
	var snap domain.TrackSnapshot

	if titleVar, ok := metadata["xesam:title"]; ok {
		if title, ok := titleVar.Value().(string); ok {
			snap.Name = title
		}
	}

	// Artist is normally an array
	if artistVar, ok := metadata["xesam:artist"]; ok {
		switch artists := artistVar.Value().(type) {
		case []string:
			snap.Artist = strings.Join(artists, ", ")
		case string:
			snap.Artist = artists
		default:
			s.logger.Debug("Unexpected artist type in metadata",
				zap.String("type", fmt.Sprintf("%T", artistVar.Value())))
		}
	}

	if albumVar, ok := metadata["xesam:album"]; ok {
		if album, ok := albumVar.Value().(string); ok {
			snap.Album = album
		}
	}

	if lengthVar, ok := metadata["mpris:length"]; ok {
		if us, ok := microseconds(lengthVar.Value()); ok {
			snap.DurationSecs = float64(us) / 1e6
		}
	}

	return snap
}

// microseconds accepts the integer types players use for time values.
func microseconds(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
