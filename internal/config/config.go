// Package config loads viewer preferences from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Silverfell/BoltPage/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidValue   = errors.New("invalid config value")
)

// DefaultFileName is looked up in the user config directory when no
// explicit path is given.
const DefaultFileName = "boltpage.yaml"

// Config holds viewer preferences. Zero values mean "use the default".
type Config struct {
	Theme         string `yaml:"theme"`         // "light", "dark", or a chroma style name
	Listen        string `yaml:"listen"`        // host:port for the preview server
	DebounceMS    int    `yaml:"debounceMs"`    // file-change debounce window
	CacheCapacity int    `yaml:"cacheCapacity"` // render cache entries
}

// Default returns the built-in preferences.
func Default() Config {
	return Config{
		Theme:  "light",
		Listen: "127.0.0.1:6419",
	}
}

// Load reads preferences from path. An empty path falls back to the user
// config directory; a missing default file is not an error and yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		dir, err := os.UserConfigDir()
		if err != nil {
			return cfg, nil
		}
		path = filepath.Join(dir, DefaultFileName)
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path comes from the user's own flags
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
	}

	if err := yamlutil.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DebounceMS < 0 {
		return fmt.Errorf("%w: debounceMs must not be negative", ErrInvalidValue)
	}
	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: cacheCapacity must not be negative", ErrInvalidValue)
	}
	return nil
}
