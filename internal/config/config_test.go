package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(cfg *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(fs, cfg)
	return fs
}

func TestDefaultsNeedHostToken(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, newFlags(cfg).Parse(nil))

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 32, cfg.OutboxSize)
	assert.Error(t, cfg.Validate())

	cfg.HostToken = "s3cret"
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestEnvFillsUnsetFlagsOnly(t *testing.T) {
	t.Setenv("TRIVIA_HOST_TOKEN", "from-env")
	t.Setenv("TRIVIA_PORT", "9090")
	t.Setenv("TRIVIA_WRITE_TIMEOUT", "2s")

	cfg := &Config{}
	fs := newFlags(cfg)
	require.NoError(t, fs.Parse([]string{"--port", "7070"}))
	require.NoError(t, ApplyEnv(fs, ""))

	assert.Equal(t, "from-env", cfg.HostToken)
	assert.Equal(t, 7070, cfg.Port, "explicit flag wins over env")
	assert.Equal(t, 2*time.Second, cfg.WriteTimeout)
}

func TestEnvFileIsOptional(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}
	fs := newFlags(cfg)
	require.NoError(t, fs.Parse(nil))
	require.NoError(t, ApplyEnv(fs, filepath.Join(dir, "missing.env")))

	t.Cleanup(func() { os.Unsetenv("TRIVIA_LOG_LEVEL") })
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("TRIVIA_LOG_LEVEL=debug\n"), 0o600))
	require.NoError(t, ApplyEnv(fs, envFile))
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestBadEnvValueIsReported(t *testing.T) {
	t.Setenv("TRIVIA_OUTBOX_SIZE", "lots")
	cfg := &Config{}
	fs := newFlags(cfg)
	require.NoError(t, fs.Parse(nil))
	assert.ErrorContains(t, ApplyEnv(fs, ""), "TRIVIA_OUTBOX_SIZE")
}

func TestIsHost(t *testing.T) {
	cfg := &Config{HostToken: "changeme"}
	assert.True(t, cfg.IsHost("changeme"))
	assert.False(t, cfg.IsHost("change"))
	assert.False(t, cfg.IsHost(""))
}
