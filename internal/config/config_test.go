package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vlErrors "github.com/openvault/vaultlock/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	// Point the user config dir somewhere empty so a developer's real
	// config cannot leak into the test.
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "vaultlock", cfg.Application)
	assert.False(t, cfg.Debug)
	assert.Empty(t, cfg.LogFile)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `application: passbook
debug: true
log_file: /var/log/vaultlock.log
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "passbook", cfg.Application)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/var/log/vaultlock.log", cfg.LogFile)
}

func TestLoadFromMissingExplicitFileFails(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
	var cfgErr *vlErrors.ConfigError
	assert.True(t, vlErrors.As(err, &cfgErr))
	assert.True(t, vlErrors.Is(err, vlErrors.ErrInvalidConfiguration))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: false\n"), 0600))

	t.Setenv("VAULTLOCK_DEBUG", "true")
	t.Setenv("VAULTLOCK_LOG_FILE", "/tmp/env.log")

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.True(t, cfg.Debug)
	assert.Equal(t, "/tmp/env.log", cfg.LogFile)
}

func TestValidateRejectsEmptyApplication(t *testing.T) {
	cfg := &Config{Application: "   "}

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrInvalidConfiguration))
}

func TestLoadFromUnparseableFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\t this is not yaml {{{"), 0600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	assert.True(t, vlErrors.Is(err, vlErrors.ErrInvalidConfiguration))
}
