package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fern/internal/core/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fern.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
version = 1
grammars_dir = "/srv/grammars"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/grammars", cfg.GrammarsDir)
	assert.Equal(t, 250*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Parse.Workers)
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
version = 1
grammars_dir = "./grammars"

[languages.ferntest]
patterns = ["**.fn", "*.fern"]

[watch]
enabled = true

[metrics]
enabled = true
address = ":9999"

[log]
level = "debug"

[parse]
workers = 8
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	require.Contains(t, cfg.Languages, "ferntest")
	assert.Equal(t, []string{"**.fn", "*.fern"}, cfg.Languages["ferntest"].Patterns)
	assert.True(t, cfg.Watch.Enabled)
	assert.Equal(t, ":9999", cfg.Metrics.Address)
	assert.Equal(t, 8, cfg.Parse.Workers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   errors.ErrorCode
	}{
		{"wrong version", func(c *Config) { c.Version = 99 }, errors.CodeVersionMismatch},
		{"empty grammars dir", func(c *Config) { c.GrammarsDir = "" }, errors.CodeValidationError},
		{"zero workers", func(c *Config) { c.Parse.Workers = 0 }, errors.CodeValidationError},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, errors.CodeValidationError},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, errors.CodeValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, tt.code))
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}
