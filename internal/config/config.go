// Package config loads application settings from defaults, an optional
// config file, and VAULTLOCK_* environment variables, in ascending
// precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/openvault/vaultlock/internal/constants"
	vlErrors "github.com/openvault/vaultlock/internal/errors"
)

// Config holds all vaultlock application settings.
type Config struct {
	// Application is the name written into lock records. Overridable so
	// embedders arbitrating their own databases show up under their own
	// name in "locked by" reports.
	Application string `mapstructure:"application"`

	// Debug enables debug-level logging.
	Debug bool `mapstructure:"debug"`

	// LogFile, when set, receives the JSON log stream.
	LogFile string `mapstructure:"log_file"`
}

// VersionInfo contains build-time version metadata.
type VersionInfo struct {
	Version string
	Commit  string
	Date    string
}

// Load reads configuration from the default locations: the user config
// directory (vaultlock/config.yaml), then environment overrides.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom reads configuration like Load, but from an explicit file when
// path is non-empty. A missing default config file is fine; a missing
// explicit one is an error.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("application", constants.AppName)
	v.SetDefault("debug", false)
	v.SetDefault("log_file", "")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, constants.AppName))
		}
	}

	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !vlErrors.As(err, &notFound) {
			return nil, vlErrors.NewConfigError("configFile", path,
				vlErrors.Wrap(vlErrors.ErrInvalidConfiguration, err.Error()))
		}
		// Default config file absent: run on defaults.
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, vlErrors.NewConfigError("configFile", path,
			vlErrors.Wrap(vlErrors.ErrInvalidConfiguration, err.Error()))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings no component can act on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Application) == "" {
		return vlErrors.NewConfigError("application", c.Application,
			vlErrors.Wrap(vlErrors.ErrInvalidConfiguration, "application name must not be empty"))
	}
	return nil
}
