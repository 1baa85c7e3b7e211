// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buaa-rag/ragchat-tui/internal/api"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
	assert.Equal(t, 30, cfg.Server.TimeoutSecs)
	assert.Equal(t, 60, cfg.Server.FallbackTimeoutSecs)
	assert.Equal(t, 6, cfg.Search.TopK)
	assert.Equal(t, api.VisibilityPrivate, cfg.Upload.Visibility)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.Server.BaseURL)
	assert.NotEmpty(t, cfg.User.ID, "user identity should be generated on first run")
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
base_url = "http://backend:9000/"

[user]
id = "user_test"
`), 0600))

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "http://backend:9000/", cfg.Server.BaseURL)
	assert.Equal(t, "user_test", cfg.User.ID)
	assert.Equal(t, 6, cfg.Search.TopK, "unset fields take defaults")
	assert.Equal(t, 60, cfg.Server.UploadTimeoutSecs)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RAGCHAT_BASE_URL", "http://override:8000")
	t.Setenv("RAGCHAT_USER_ID", "user_env")

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, "http://override:8000", cfg.Server.BaseURL)
	assert.Equal(t, "user_env", cfg.User.ID)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "not a url"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Upload.Visibility = "SECRET"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.UI.Theme = "solarized"
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := Default()
	cfg.User.ID = "user_roundtrip"
	cfg.Server.BaseURL = "http://backend:9000"
	require.NoError(t, SaveToPath(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "user_roundtrip", loaded.User.ID)
	assert.Equal(t, "http://backend:9000", loaded.Server.BaseURL)
}

func TestClientConfigDerivation(t *testing.T) {
	cfg := Default()
	cfg.Server.BaseURL = "http://backend:9000/"
	cc := cfg.ClientConfig()
	assert.Equal(t, "http://backend:9000", cc.BaseURL, "trailing slash trimmed")
	assert.Equal(t, 30*time.Second, cc.Timeout)
	assert.Equal(t, 60*time.Second, cc.FallbackTimeout)
}

func TestWatchReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[user]\nid = \"user_a\"\n"), 0600))

	reloaded := make(chan *Config, 4)
	w, err := Watch(path, func(c *Config) { reloaded <- c }, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("[user]\nid = \"user_b\"\n"), 0600))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "user_b", cfg.User.ID)
	case <-time.After(3 * time.Second):
		t.Fatal("config change never observed")
	}
}
