package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, HostCursor, cfg.Host)
	assert.Equal(t, "qveris-cursor", cfg.KeyPrefix)
	assert.Equal(t, DefaultRulesPath, cfg.RulesPath)
	assert.Equal(t, 10, cfg.SearchLimit)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"base_url: https://staging.qveris.ai\nhost: vscode\nworkspace: /tmp/ws\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://staging.qveris.ai", cfg.BaseURL)
	assert.Equal(t, HostVSCode, cfg.Host)
	assert.Equal(t, "/tmp/ws", cfg.Workspace)
	assert.Equal(t, "qveris-vscode", cfg.KeyPrefix)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoadRejectsUnknownHost(t *testing.T) {
	t.Setenv("QVERIS_HOST", "emacs")
	_, err := Load("")
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("QVERIS_BASE_URL", "https://env.qveris.ai")
	t.Setenv("QVERIS_HOST", HostVSCode)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://env.qveris.ai", cfg.BaseURL)
	assert.Equal(t, HostVSCode, cfg.Host)
}

func TestExpandPath(t *testing.T) {
	cfg := &Config{Workspace: "/tmp/ws"}

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.mdc"), cfg.ExpandPath("~/x.mdc"))
	assert.Equal(t, "/abs/x.mdc", cfg.ExpandPath("/abs/x.mdc"))
	assert.Equal(t, "/tmp/ws/rel/x.mdc", cfg.ExpandPath("rel/x.mdc"))
	assert.Equal(t, "", cfg.ExpandPath(""))
}
