// Package config loads the tmplkit command configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/kdsmith18542/tmplkit/i18n"
	"github.com/kdsmith18542/tmplkit/observability"
)

// EnvConfigFile names the configuration file when no path is given.
const EnvConfigFile = "TMPLKIT_CONFIG"

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the command configuration.
type Config struct {
	// DefaultLocale is the base layer every locale is derived from.
	DefaultLocale string `toml:"default_locale"`
	// Sources lists message locations in priority order, lowest first.
	// Entries are directories or s3://, gs://, azblob:// URIs.
	Sources []string `toml:"sources"`
	// Templates lists template directories in priority order, lowest first.
	Templates []string `toml:"templates"`
	// WatchDirs are watched in addition to the local sources and templates.
	WatchDirs []string `toml:"watch_dirs"`
	// EditorDir enables the message editor and receives its saved files.
	EditorDir string `toml:"editor_dir"`

	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`

	Observability observability.Config `toml:"observability"`
}

// SetDefaults populates the configuration with default values.
func (cfg *Config) SetDefaults() {
	cfg.DefaultLocale = i18n.DefaultLocale
	cfg.Addr = "localhost:8080"
	cfg.LogLevel = "info"
	cfg.Observability.ServiceName = "tmplkit"
}

// Load reads the configuration at path, or at $TMPLKIT_CONFIG when path is
// empty. With neither set the defaults are returned. Keys absent from the
// file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.SetDefaults()

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unknown key %q in %s", ErrInvalidConfig, undecoded[0].String(), path)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and normalises the default locale.
func (cfg *Config) Validate() error {
	locale, ok := i18n.NormalizeLocale(cfg.DefaultLocale)
	if !ok {
		return fmt.Errorf("%w: default_locale %q is not a locale", ErrInvalidConfig, cfg.DefaultLocale)
	}
	cfg.DefaultLocale = locale
	return nil
}
