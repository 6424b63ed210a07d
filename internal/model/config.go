package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends for the identity list and preferences.
const (
	StorageSQLite  = "sqlite"
	StorageKeyring = "keyring"
)

// ProviderConfig holds settings for the remote mail provider.
type ProviderConfig struct {
	// BaseURL is the root URL of the provider API.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the request timeout as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSec) * time.Second
}

// PollConfig controls the background mailbox refresh.
type PollConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// Interval returns the refresh interval as a duration.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSec) * time.Second
}

// StorageConfig selects where identities and preferences are persisted.
type StorageConfig struct {
	// Backend is "sqlite" or "keyring".
	Backend string `mapstructure:"backend" yaml:"backend"`

	// Path is the SQLite database file. The notification log always
	// lives here, even with the keyring backend.
	Path string `mapstructure:"path" yaml:"path"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// Theme forces "dark" or "light". Empty follows the stored
	// preference, then the terminal background.
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// NotificationConfig controls new-mail alerts.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// ShareConfig controls share-link generation.
type ShareConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// LogConfig controls the application log.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
	JSON  bool   `mapstructure:"json" yaml:"json"`
}

// StartupConfig controls first-run behaviour.
type StartupConfig struct {
	// AutoProvision creates an identity when none is stored.
	AutoProvision bool `mapstructure:"auto_provision" yaml:"auto_provision"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Provider      ProviderConfig     `mapstructure:"provider" yaml:"provider"`
	Poll          PollConfig         `mapstructure:"poll" yaml:"poll"`
	Storage       StorageConfig      `mapstructure:"storage" yaml:"storage"`
	Downloads     DownloadsConfig    `mapstructure:"downloads" yaml:"downloads"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Share         ShareConfig        `mapstructure:"share" yaml:"share"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`
	Startup       StartupConfig      `mapstructure:"startup" yaml:"startup"`
}

// DownloadsConfig is where exports, backups and attachments are written.
type DownloadsConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ConfigDir returns ~/.config/burnerx, or the working directory when the
// home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "burnerx")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/burnerx/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// setDefaults registers every default on v so missing keys resolve to
// sensible values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("provider.base_url", "https://api.mail.tm")
	v.SetDefault("provider.timeout_sec", 30)
	v.SetDefault("poll.interval_sec", 5)
	v.SetDefault("storage.backend", StorageSQLite)
	v.SetDefault("storage.path", filepath.Join(ConfigDir(), "burnerx.db"))
	v.SetDefault("downloads.dir", defaultDownloadsDir())
	v.SetDefault("display.theme", "")
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("share.base_url", "https://burnerx.app/share")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(ConfigDir(), "burnerx.log"))
	v.SetDefault("log.json", false)
	v.SetDefault("startup.auto_provision", true)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with BURNERX_ override file values
// (BURNERX_PROVIDER_BASE_URL, BURNERX_POLL_INTERVAL_SEC, ...). If the file
// does not exist, defaults and environment are used.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("burnerx")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &pathErr) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks enumerated and numeric settings.
func (c *AppConfig) Validate() error {
	switch c.Storage.Backend {
	case StorageSQLite, StorageKeyring:
	default:
		return fmt.Errorf("storage.backend %q not one of: sqlite, keyring", c.Storage.Backend)
	}
	switch c.Display.Theme {
	case "", "dark", "light":
	default:
		return fmt.Errorf("display.theme %q not one of: dark, light", c.Display.Theme)
	}
	if c.Poll.IntervalSec <= 0 {
		return fmt.Errorf("poll.interval_sec must be positive, got %d", c.Poll.IntervalSec)
	}
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("provider.base_url is required")
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("provider", cfg.Provider)
	v.Set("poll", cfg.Poll)
	v.Set("storage", cfg.Storage)
	v.Set("downloads", cfg.Downloads)
	v.Set("display", cfg.Display)
	v.Set("notifications", cfg.Notifications)
	v.Set("share", cfg.Share)
	v.Set("log", cfg.Log)
	v.Set("startup", cfg.Startup)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
