package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/genricoloni/tunecord/internal/domain"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T, path string) *PreferencesStore {
	t.Helper()
	t.Setenv("TUNECORD_PREFERENCES_PATH", path)
	cfg, err := NewAppConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppConfig: %v", err)
	}
	return NewPreferencesStore(zap.NewNop(), cfg)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestLoadPreferences(t *testing.T) {
	tests := []struct {
		name    string
		content string // empty means no file
		want    domain.Preferences
		wantErr bool
	}{
		{
			name: "Missing file gives defaults",
			want: domain.DefaultPreferences(),
		},
		{
			name:    "Partial file keeps other defaults",
			content: `{"showAlbumArt": false, "displayFormat": "artistSong"}`,
			want: domain.Preferences{
				Enabled:          true,
				ShowAlbumArt:     false,
				ShowTimestamps:   true,
				DisplayFormat:    domain.FormatArtistSong,
				IdleBehavior:     domain.IdleClearStatus,
				PollIntervalSecs: 5,
			},
		},
		{
			name:    "Full file",
			content: `{"enableOnLaunch": false, "showAlbumArt": true, "showTimestamps": false, "displayFormat": "songArtist", "idleBehavior": "showPaused", "pollIntervalSecs": 10}`,
			want: domain.Preferences{
				Enabled:          false,
				ShowAlbumArt:     true,
				ShowTimestamps:   false,
				DisplayFormat:    domain.FormatSongArtist,
				IdleBehavior:     domain.IdleShowPaused,
				PollIntervalSecs: 10,
			},
		},
		{
			name:    "Unknown values normalized",
			content: `{"displayFormat": "sideways", "idleBehavior": "explode", "pollIntervalSecs": 99}`,
			want: domain.Preferences{
				Enabled:          true,
				ShowAlbumArt:     true,
				ShowTimestamps:   true,
				DisplayFormat:    domain.FormatSongArtist,
				IdleBehavior:     domain.IdleClearStatus,
				PollIntervalSecs: domain.MaxPollIntervalSecs,
			},
		},
		{
			name:    "Corrupt file",
			content: `{not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			if tt.content != "" {
				writeFile(t, path, tt.content)
			}

			got, err := LoadPreferences(path)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestPreferencesStore_CorruptFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{not json`)

	store := newTestStore(t, path)
	if got := store.Snapshot(); got != domain.DefaultPreferences() {
		t.Errorf("expected defaults, got %+v", got)
	}
}

func TestPreferencesStore_SaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	store := newTestStore(t, path)

	prefs := domain.DefaultPreferences()
	prefs.IdleBehavior = domain.IdleShowPaused
	prefs.PollIntervalSecs = 1

	if err := store.Save(prefs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got := store.Snapshot().PollIntervalSecs; got != domain.MinPollIntervalSecs {
		t.Errorf("expected clamped interval, got %d", got)
	}

	loaded, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if loaded != store.Snapshot() {
		t.Errorf("persisted %+v differs from snapshot %+v", loaded, store.Snapshot())
	}
}

func TestPreferencesStore_SaveKeepsLaunchAtLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"enableOnLaunch": true, "pollIntervalSecs": 5, "launchAtLogin": true}`)
	store := newTestStore(t, path)

	if !store.Snapshot().LaunchAtLogin {
		t.Fatal("launchAtLogin not loaded")
	}

	prefs := store.Snapshot()
	prefs.ShowTimestamps = false
	if err := store.Save(prefs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences: %v", err)
	}
	if !loaded.LaunchAtLogin {
		t.Errorf("launchAtLogin dropped on save: %+v", loaded)
	}
	if loaded.ShowTimestamps {
		t.Errorf("update not persisted: %+v", loaded)
	}
}

func TestPreferencesStore_WatchReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := newTestStore(t, path)

	if err := store.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer store.Unwatch()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("watch should create the file: %v", err)
	}

	writeFile(t, path, `{"enableOnLaunch": false, "pollIntervalSecs": 12}`)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if p := store.Snapshot(); !p.Enabled && p.PollIntervalSecs == 12 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("preferences were not reloaded, got %+v", store.Snapshot())
}
