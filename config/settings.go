package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings are the command line tool's own preferences, separate from the
// site configuration.
type Settings struct {
	// Config is the site configuration path. Empty means search
	// DefaultPaths.
	Config           string        `mapstructure:"config"`
	LogLevel         string        `mapstructure:"log_level"`
	LogPretty        bool          `mapstructure:"log_pretty"`
	ClipboardTimeout time.Duration `mapstructure:"clipboard_timeout"`
	SiteList         string        `mapstructure:"site_list"`
	PluginDir        string        `mapstructure:"plugin_dir"`
	KeyringService   string        `mapstructure:"keyring_service"`
	// Keystore selects the keystore backend. Empty means the current
	// platform's.
	Keystore string `mapstructure:"keystore"`
}

// SettingsDir returns the directory holding settings.yaml.
func SettingsDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "passacre")
	}
	return "."
}

// NewViper returns a viper instance reading settings.yaml from dir and
// PASSACRE_* environment variables. Callers may bind flags before calling
// LoadSettings.
func NewViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("settings")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetEnvPrefix("passacre")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("config", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_pretty", true)
	v.SetDefault("clipboard_timeout", 30*time.Second)
	v.SetDefault("site_list", filepath.Join(dir, "sites.enc"))
	v.SetDefault("plugin_dir", filepath.Join(dir, "plugins"))
	v.SetDefault("keyring_service", "passacre")
	v.SetDefault("keystore", "")
	return v
}

// LoadSettings reads the settings file, if any, and decodes the merged
// settings.
func LoadSettings(v *viper.Viper) (Settings, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Settings{}, fmt.Errorf("failed to read settings: %w", err)
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	return s, nil
}
