package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/genricoloni/tunecord/internal/domain"
	gojson "github.com/goccy/go-json"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// PreferencesStore holds the user preferences and keeps them in sync with
// the preferences file.
type PreferencesStore struct {
	logger   *zap.Logger
	path     string
	mu       sync.RWMutex
	prefs    domain.Preferences
	watcher  *file.File
	watching bool
}

var (
	_ domain.PreferencesStore  = (*PreferencesStore)(nil)
	_ domain.PreferencesWriter = (*PreferencesStore)(nil)
)

// NewPreferencesStore loads the preferences file. A missing or unreadable
// file yields the defaults.
func NewPreferencesStore(logger *zap.Logger, cfg *AppConfig) *PreferencesStore {
	s := &PreferencesStore{
		logger: logger,
		path:   cfg.GetPreferencesPath(),
	}

	prefs, err := LoadPreferences(s.path)
	if err != nil {
		logger.Warn("Failed to load preferences, using defaults",
			zap.String("path", s.path),
			zap.Error(err))
		prefs = domain.DefaultPreferences()
	}
	s.prefs = prefs

	logger.Info("Preferences loaded",
		zap.String("path", s.path),
		zap.Bool("enabled", prefs.Enabled),
		zap.String("displayFormat", string(prefs.DisplayFormat)),
		zap.String("idleBehavior", string(prefs.IdleBehavior)),
		zap.Int("pollIntervalSecs", prefs.PollIntervalSecs))

	return s
}

// LoadPreferences layers the file over the defaults
func LoadPreferences(path string) (domain.Preferences, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(domain.DefaultPreferences(), "koanf"), nil); err != nil {
		return domain.Preferences{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return domain.Preferences{}, fmt.Errorf("failed to load preferences file %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return domain.Preferences{}, fmt.Errorf("failed to stat preferences file: %w", err)
	}

	var prefs domain.Preferences
	if err := k.Unmarshal("", &prefs); err != nil {
		return domain.Preferences{}, fmt.Errorf("failed to unmarshal preferences: %w", err)
	}

	return normalize(prefs), nil
}

// normalize replaces unknown enum values with defaults and clamps the poll
// interval.
func normalize(p domain.Preferences) domain.Preferences {
	def := domain.DefaultPreferences()

	switch p.DisplayFormat {
	case domain.FormatSongArtist, domain.FormatArtistSong:
	default:
		p.DisplayFormat = def.DisplayFormat
	}

	switch p.IdleBehavior {
	case domain.IdleClearStatus, domain.IdleShowPaused:
	default:
		p.IdleBehavior = def.IdleBehavior
	}

	p.PollIntervalSecs = p.PollInterval()
	return p
}

// Snapshot returns a copy of the current preferences
func (s *PreferencesStore) Snapshot() domain.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// Save persists prefs and makes them current
func (s *PreferencesStore) Save(prefs domain.Preferences) error {
	prefs = normalize(prefs)

	if err := writePreferences(s.path, prefs); err != nil {
		return err
	}

	s.mu.Lock()
	s.prefs = prefs
	s.mu.Unlock()

	s.logger.Info("Preferences saved", zap.String("path", s.path))
	return nil
}

func writePreferences(path string, prefs domain.Preferences) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create preferences dir: %w", err)
	}

	data, err := gojson.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize preferences: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	return nil
}

// Watch reloads the preferences whenever the file changes. The file is
// created with the current preferences if it does not exist yet.
func (s *PreferencesStore) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watching {
		return nil
	}

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		if err := writePreferences(s.path, s.prefs); err != nil {
			return err
		}
	}

	watcher := file.Provider(s.path)
	err := watcher.Watch(func(event interface{}, err error) {
		if err != nil {
			s.logger.Warn("Preferences watch error", zap.Error(err))
			return
		}
		s.reload()
	})
	if err != nil {
		return fmt.Errorf("failed to watch preferences: %w", err)
	}

	s.watcher = watcher
	s.watching = true
	s.logger.Debug("Watching preferences file", zap.String("path", s.path))
	return nil
}

// Unwatch stops reloading
func (s *PreferencesStore) Unwatch() error {
	s.mu.Lock()
	if !s.watching {
		s.mu.Unlock()
		return nil
	}
	s.watching = false
	watcher := s.watcher
	s.mu.Unlock()

	// The watch callback takes the lock, so release it first
	return watcher.Unwatch()
}

func (s *PreferencesStore) reload() {
	prefs, err := LoadPreferences(s.path)
	if err != nil {
		s.logger.Warn("Ignoring unreadable preferences change", zap.Error(err))
		return
	}

	s.mu.Lock()
	changed := prefs != s.prefs
	s.prefs = prefs
	s.mu.Unlock()

	if changed {
		s.logger.Info("Preferences reloaded",
			zap.Bool("enabled", prefs.Enabled),
			zap.Int("pollIntervalSecs", prefs.PollIntervalSecs))
	}
}
