package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, DefaultDescription, cfg.Description)
	assert.Equal(t, DefaultTemplateURL, cfg.TemplateURL)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Empty(t, cfg.Author)
	assert.Zero(t, cfg.CloneDepth)
	assert.NotNil(t, cfg.Params)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := &Config{Author: "Ada", CloneDepth: 1}
	got := cfg.WithDefaults()

	assert.Equal(t, "Ada", got.Author)
	assert.Equal(t, 1, got.CloneDepth)
	assert.Equal(t, DefaultDescription, got.Description)
	assert.Equal(t, DefaultTemplateURL, got.TemplateURL)
	assert.Equal(t, DefaultFetchTimeout, got.FetchTimeout)
	assert.Empty(t, cfg.TemplateURL, "receiver must not be modified")

	custom := (&Config{FetchTimeout: 5 * time.Second, TemplateURL: "/tmp/tpl"}).WithDefaults()
	assert.Equal(t, 5*time.Second, custom.FetchTimeout)
	assert.Equal(t, "/tmp/tpl", custom.TemplateURL)
}

func TestConfig_NewProject(t *testing.T) {
	cfg := &Config{
		Author:      "Ada",
		Description: "Tools",
		TemplateURL: "https://example.com/tpl.git",
		TemplateRef: "main",
		CloneDepth:  1,
		Params:      map[string]string{"license": "MIT"},
	}

	pc := cfg.NewProject("demo")

	assert.Equal(t, "demo", pc.ProjectName)
	assert.Equal(t, "Ada", pc.Author)
	assert.Equal(t, "Tools", pc.Description)
	assert.Equal(t, "https://example.com/tpl.git", pc.TemplateURL)
	assert.Equal(t, "main", pc.TemplateRef)
	assert.Equal(t, 1, pc.CloneDepth)
	assert.Equal(t, "."+string(filepath.Separator)+"demo", pc.OutputDir)
	assert.False(t, pc.Force)

	pc.AdditionalParams["license"] = "Apache-2.0"
	assert.Equal(t, "MIT", cfg.Params["license"], "params must be copied")
}

func TestDefaultOutputFor(t *testing.T) {
	assert.Equal(t, DefaultOutputDir, DefaultOutputFor(""))
	assert.Equal(t, "demo", filepath.Clean(DefaultOutputFor("demo")))
}
