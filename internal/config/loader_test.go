package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	assert.NotNil(t, loader)
	assert.NotNil(t, loader.v)
}

func TestLoaderLoad(t *testing.T) {
	t.Run("loads config from file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		content := `
author: Ada Lovelace
description: Analytical tools
template_url: https://example.com/tpl.git
template_ref: v2
clone_depth: 1
fetch_timeout: 30s
params:
  license: MIT
log:
  timestamps: false
`
		require.NoError(t, os.WriteFile(configFile, []byte(content), 0o644))

		loader := NewLoader()
		cfg, err := loader.Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "Ada Lovelace", cfg.Author)
		assert.Equal(t, "Analytical tools", cfg.Description)
		assert.Equal(t, "https://example.com/tpl.git", cfg.TemplateURL)
		assert.Equal(t, "v2", cfg.TemplateRef)
		assert.Equal(t, 1, cfg.CloneDepth)
		assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
		assert.Equal(t, map[string]string{"license": "MIT"}, cfg.Params)
		require.NotNil(t, cfg.Log.Timestamps)
		assert.False(t, *cfg.Log.Timestamps)

		assert.Equal(t, SourceConfig, loader.Source("author"))
		assert.Equal(t, SourceConfig, loader.Source("log.timestamps"))
	})

	t.Run("returns empty config for missing file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "nonexistent.yaml")

		loader := NewLoader()
		cfg, err := loader.Load(configFile)

		require.NoError(t, err)
		assert.Empty(t, cfg.Author)
		assert.Empty(t, cfg.TemplateURL)
		assert.Equal(t, SourceDefault, loader.Source("template_url"))
	})

	t.Run("environment overrides file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("author: File Author\nclone_depth: 5\n"), 0o644))

		t.Setenv("GWA_AUTHOR", "Env Author")
		t.Setenv("GWA_CLONE_DEPTH", "2")
		t.Setenv("GWA_FETCH_TIMEOUT", "1m")

		loader := NewLoader()
		cfg, err := loader.Load(configFile)

		require.NoError(t, err)
		assert.Equal(t, "Env Author", cfg.Author)
		assert.Equal(t, 2, cfg.CloneDepth)
		assert.Equal(t, time.Minute, cfg.FetchTimeout)
		assert.Equal(t, SourceEnv, loader.Source("author"))
	})

	t.Run("invalid yaml is an error", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")
		require.NoError(t, os.WriteFile(configFile, []byte("author: [unclosed\n"), 0o644))

		_, err := NewLoader().Load(configFile)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reading config file")
	})
}

func TestLoaderLoadWithDefaults(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("author: Ada\n"), 0o644))

	cfg, err := NewLoader().LoadWithDefaults(configFile)
	require.NoError(t, err)

	assert.Equal(t, "Ada", cfg.Author)
	assert.Equal(t, DefaultTemplateURL, cfg.TemplateURL)
	assert.Equal(t, DefaultDescription, cfg.Description)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
}

func TestConfigFileExists(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(existing, []byte("{}\n"), 0o644))

	ok, err := ConfigFileExists(existing)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ConfigFileExists(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRenderDefaultConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".gwa", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Template repository")
	assert.Contains(t, string(data), "template_url: "+DefaultTemplateURL)

	cfg, err := NewLoader().Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().TemplateURL, cfg.TemplateURL)
	assert.Equal(t, DefaultConfig().Description, cfg.Description)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	require.NotNil(t, cfg.Log.Timestamps)
	assert.True(t, *cfg.Log.Timestamps)
	assert.NoError(t, cfg.Validate())
}
