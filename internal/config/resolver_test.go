package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	defaultPath := filepath.Join(home, ".gwa", "config.yaml")

	tests := []struct {
		name         string
		flag         string
		env          string
		wantPath     string
		wantSource   ConfigSource
		wantShadowed map[ConfigSource]string
	}{
		{
			name:         "flag wins",
			flag:         "/flag/config.yaml",
			env:          "/env/config.yaml",
			wantPath:     "/flag/config.yaml",
			wantSource:   SourceFlag,
			wantShadowed: map[ConfigSource]string{SourceEnv: "/env/config.yaml", SourceDefault: defaultPath},
		},
		{
			name:         "env over default",
			env:          "/env/config.yaml",
			wantPath:     "/env/config.yaml",
			wantSource:   SourceEnv,
			wantShadowed: map[ConfigSource]string{SourceDefault: defaultPath},
		},
		{
			name:         "default",
			wantPath:     defaultPath,
			wantSource:   SourceDefault,
			wantShadowed: map[ConfigSource]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GWA_CONFIG", tt.env)

			result, err := ResolveConfigPath(ResolveConfigPathOptions{FlagValue: tt.flag})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, result.ConfigPath)
			assert.Equal(t, tt.wantSource, result.Source)
			assert.Equal(t, tt.wantShadowed, result.Shadowed)
		})
	}
}

func TestResolve(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("author: File Author\n"), 0o644))
	for _, env := range []string{"GWA_AUTHOR", "GWA_CLONE_DEPTH"} {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
	t.Setenv("GWA_TEMPLATE_REF", "env-ref")

	loader := NewLoader()
	cfg, err := loader.LoadWithDefaults(configFile)
	require.NoError(t, err)

	t.Run("flag shadows config", func(t *testing.T) {
		v, rv := Resolve(loader, "author", true, "Flag Author", cfg.Author)
		assert.Equal(t, "Flag Author", v)
		assert.Equal(t, SourceFlag, rv.Source)
		assert.Equal(t, map[ConfigSource]any{SourceConfig: "File Author"}, rv.Shadowed)
	})

	t.Run("config when flag unset", func(t *testing.T) {
		v, rv := Resolve(loader, "author", false, "", cfg.Author)
		assert.Equal(t, "File Author", v)
		assert.Equal(t, SourceConfig, rv.Source)
		assert.Nil(t, rv.Shadowed)
	})

	t.Run("env", func(t *testing.T) {
		v, rv := Resolve(loader, "template_ref", false, "", cfg.TemplateRef)
		assert.Equal(t, "env-ref", v)
		assert.Equal(t, SourceEnv, rv.Source)
	})

	t.Run("default", func(t *testing.T) {
		v, rv := Resolve(loader, "clone_depth", false, 0, cfg.CloneDepth)
		assert.Equal(t, 0, v)
		assert.Equal(t, SourceDefault, rv.Source)

		v, rv = Resolve(loader, "clone_depth", true, 3, cfg.CloneDepth)
		assert.Equal(t, 3, v)
		assert.Nil(t, rv.Shadowed)
	})

	LogResolvedValues([]ResolvedValue{{Key: "author", Value: "x", Source: SourceFlag, Shadowed: map[ConfigSource]any{SourceEnv: "y"}}})
}
