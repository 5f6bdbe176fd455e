package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

const (
	defaultAppID = "1470809241907363921"

	// httpDisabled turns the local API off
	httpDisabled = "off"
)

// envConfig is the raw environment layout
type envConfig struct {
	AppID           string `env:"TUNECORD_DISCORD_APP_ID" envDefault:"1470809241907363921"`
	CachePath       string `env:"TUNECORD_CACHE_PATH" envDefault:"~/.tunecord/art-cache.json"`
	PreferencesPath string `env:"TUNECORD_PREFERENCES_PATH" envDefault:"~/.tunecord/config.json"`
	LookupEndpoint  string `env:"TUNECORD_LOOKUP_ENDPOINT" envDefault:"https://itunes.apple.com/search"`
	HTTPAddr        string `env:"TUNECORD_HTTP_ADDR" envDefault:"127.0.0.1:4820"`
	Debug           bool   `env:"TUNECORD_DEBUG" envDefault:"false"`
}

// AppConfig holds daemon configuration
type AppConfig struct {
	logger          *zap.Logger
	appID           string
	cachePath       string
	preferencesPath string
	lookupEndpoint  string
	httpAddr        string
	debug           bool
}

// loadEnv parses the environment. The logger does not exist yet when this
// runs, so it only returns errors.
func loadEnv() (envConfig, error) {
	var cfg envConfig
	if err := env.Parse(&cfg); err != nil {
		return envConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// DebugEnabled reports whether TUNECORD_DEBUG is set, for logger setup.
func DebugEnabled() bool {
	cfg, err := loadEnv()
	return err == nil && cfg.Debug
}

// NewAppConfig creates a new application configuration instance
func NewAppConfig(logger *zap.Logger) (*AppConfig, error) {
	raw, err := loadEnv()
	if err != nil {
		return nil, err
	}

	if raw.AppID == "" {
		raw.AppID = defaultAppID
	}

	cfg := &AppConfig{
		logger:          logger,
		appID:           raw.AppID,
		cachePath:       expandPath(raw.CachePath),
		preferencesPath: expandPath(raw.PreferencesPath),
		lookupEndpoint:  raw.LookupEndpoint,
		httpAddr:        raw.HTTPAddr,
		debug:           raw.Debug,
	}
	if strings.EqualFold(cfg.httpAddr, httpDisabled) {
		cfg.httpAddr = ""
	}

	logger.Info("Configuration loaded",
		zap.String("cachePath", cfg.cachePath),
		zap.String("preferencesPath", cfg.preferencesPath),
		zap.String("lookupEndpoint", cfg.lookupEndpoint),
		zap.String("httpAddr", cfg.httpAddr),
		zap.Bool("debug", cfg.debug))

	return cfg, nil
}

// expandPath resolves environment variables and a leading ~
func expandPath(path string) string {
	path = os.ExpandEnv(path)
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetAppID returns the presence application ID
func (c *AppConfig) GetAppID() string {
	return c.appID
}

// GetCachePath returns the artwork disk cache file
func (c *AppConfig) GetCachePath() string {
	return c.cachePath
}

// GetPreferencesPath returns the preferences file
func (c *AppConfig) GetPreferencesPath() string {
	return c.preferencesPath
}

// GetLookupEndpoint returns the artwork search URL
func (c *AppConfig) GetLookupEndpoint() string {
	return c.lookupEndpoint
}

// GetHTTPAddr returns the local API listen address, or "" when disabled
func (c *AppConfig) GetHTTPAddr() string {
	return c.httpAddr
}

// IsDebug reports whether debug logging is on
func (c *AppConfig) IsDebug() bool {
	return c.debug
}
