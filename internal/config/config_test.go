package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewAppConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"TUNECORD_DISCORD_APP_ID", "TUNECORD_CACHE_PATH", "TUNECORD_PREFERENCES_PATH",
		"TUNECORD_LOOKUP_ENDPOINT", "TUNECORD_HTTP_ADDR", "TUNECORD_DEBUG",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := NewAppConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppConfig: %v", err)
	}

	if cfg.GetAppID() != defaultAppID {
		t.Errorf("expected default app ID, got %s", cfg.GetAppID())
	}
	if cfg.GetLookupEndpoint() != "https://itunes.apple.com/search" {
		t.Errorf("unexpected endpoint %s", cfg.GetLookupEndpoint())
	}
	if cfg.GetHTTPAddr() != "127.0.0.1:4820" {
		t.Errorf("unexpected http addr %s", cfg.GetHTTPAddr())
	}
	if cfg.IsDebug() {
		t.Error("debug should be off by default")
	}
	if strings.HasPrefix(cfg.GetCachePath(), "~") || !strings.HasSuffix(cfg.GetCachePath(), filepath.Join(".tunecord", "art-cache.json")) {
		t.Errorf("cache path not expanded: %s", cfg.GetCachePath())
	}
	if !strings.HasSuffix(cfg.GetPreferencesPath(), filepath.Join(".tunecord", "config.json")) {
		t.Errorf("unexpected preferences path %s", cfg.GetPreferencesPath())
	}
}

func TestNewAppConfig_Overrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TUNECORD_DISCORD_APP_ID", "42")
	t.Setenv("TUNECORD_CACHE_PATH", "$TUNECORD_TEST_DIR/cache.json")
	t.Setenv("TUNECORD_TEST_DIR", dir)
	t.Setenv("TUNECORD_PREFERENCES_PATH", filepath.Join(dir, "prefs.json"))
	t.Setenv("TUNECORD_LOOKUP_ENDPOINT", "http://localhost:9999/search")
	t.Setenv("TUNECORD_HTTP_ADDR", "off")
	t.Setenv("TUNECORD_DEBUG", "true")

	cfg, err := NewAppConfig(zap.NewNop())
	if err != nil {
		t.Fatalf("NewAppConfig: %v", err)
	}

	tests := []struct {
		name, got, want string
	}{
		{"app id", cfg.GetAppID(), "42"},
		{"cache path", cfg.GetCachePath(), filepath.Join(dir, "cache.json")},
		{"preferences path", cfg.GetPreferencesPath(), filepath.Join(dir, "prefs.json")},
		{"endpoint", cfg.GetLookupEndpoint(), "http://localhost:9999/search"},
		{"http addr", cfg.GetHTTPAddr(), ""},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: expected %q, got %q", tt.name, tt.want, tt.got)
		}
	}
	if !cfg.IsDebug() || !DebugEnabled() {
		t.Error("debug should be on")
	}
}

func TestNewAppConfig_InvalidBool(t *testing.T) {
	t.Setenv("TUNECORD_DEBUG", "maybe")

	if _, err := NewAppConfig(zap.NewNop()); err == nil {
		t.Error("expected parse error")
	}
}

func TestDebugEnabled(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"On", "true", true},
		{"Off", "false", false},
		{"Invalid", "maybe", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TUNECORD_DEBUG", tt.value)

			if got := DebugEnabled(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}

			raw, err := loadEnv()
			if tt.name == "Invalid" {
				if err == nil {
					t.Error("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("loadEnv: %v", err)
			}
			if raw.Debug != tt.want {
				t.Errorf("raw debug: expected %v, got %v", tt.want, raw.Debug)
			}
		})
	}
}
