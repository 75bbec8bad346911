// # internal/core/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"fern/internal/core/errors"
)

// Config is the engine runtime configuration, loaded from a TOML file.
type Config struct {
	Version     int                 `toml:"version"`
	GrammarsDir string              `toml:"grammars_dir"`
	Languages   map[string]Language `toml:"languages"`
	Watch       Watch               `toml:"watch"`
	Metrics     Metrics             `toml:"metrics"`
	Tracing     Tracing             `toml:"tracing"`
	Log         Log                 `toml:"log"`
	Parse       Parse               `toml:"parse"`
}

// Language overrides how one registered language maps to files.
type Language struct {
	Enabled  *bool    `toml:"enabled"`
	Patterns []string `toml:"patterns"`
}

type Watch struct {
	Enabled  bool          `toml:"enabled"`
	Debounce time.Duration `toml:"debounce"`
}

type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

type Tracing struct {
	Endpoint string `toml:"endpoint"`
}

type Log struct {
	Level string `toml:"level"`
}

type Parse struct {
	Workers int `toml:"workers"`
}

const currentVersion = 1

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Version:     currentVersion,
		GrammarsDir: "./grammars",
		Watch:       Watch{Debounce: 250 * time.Millisecond},
		Metrics:     Metrics{Address: ":9158"},
		Log:         Log{Level: "info"},
		Parse:       Parse{Workers: 4},
	}
}

// Load reads the config at path, fills defaults, and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeNotFound, "config file not readable"),
			errors.CtxPath, path)
	}

	cfg := Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeValidationError, "malformed config"),
			errors.CtxPath, path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return cfg, nil
}

// Validate checks invariants a later component would otherwise trip
// over at an awkward time.
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return errors.New(errors.CodeVersionMismatch,
			fmt.Sprintf("config version %d, expected %d", c.Version, currentVersion))
	}
	if c.GrammarsDir == "" {
		return errors.New(errors.CodeValidationError, "grammars_dir must be set")
	}
	if c.Parse.Workers < 1 {
		return errors.New(errors.CodeValidationError, "parse.workers must be at least 1")
	}
	if c.Watch.Debounce < 0 {
		return errors.New(errors.CodeValidationError, "watch.debounce must not be negative")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.CodeValidationError,
			fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	return nil
}
