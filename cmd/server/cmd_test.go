package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/trivia-hub/internal/config"
)

func TestCommandRequiresHostToken(t *testing.T) {
	t.Setenv("TRIVIA_HOST_TOKEN", "")
	cfg := &config.Config{}
	cmd := newCmd(cfg)
	cmd.SetArgs([]string{"--env-file", ""})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host token")
}

func TestCommandReadsEnvironment(t *testing.T) {
	t.Setenv("TRIVIA_HOST_TOKEN", "s3cret")
	t.Setenv("TRIVIA_PORT", "0")
	cfg := &config.Config{}
	cmd := newCmd(cfg)
	cmd.SetArgs([]string{"--env-file", ""})

	// Port 0 fails validation after the environment has been applied.
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, "s3cret", cfg.HostToken)
	assert.Equal(t, 0, cfg.Port)
}
