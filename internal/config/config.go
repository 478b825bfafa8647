// Package config provides the project configuration record, its validation,
// and loading of user defaults.
package config

import (
	"path/filepath"
	"time"
)

// Built-in defaults applied when neither flags, environment nor the config
// file supply a value.
const (
	DefaultDescription  = "A new project"
	DefaultTemplateURL  = "https://github.com/rust-cli/default-template"
	DefaultOutputDir    = "."
	DefaultFetchTimeout = 2 * time.Minute
)

// ProjectConfig is the validated record consumed by the generator.
// It is built identically by command-line flags and the interactive form.
type ProjectConfig struct {
	// ProjectName is substituted for {{project_name}} and names the
	// default output directory.
	ProjectName string `json:"project_name" yaml:"project_name"`

	// Description is substituted for {{description}}.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Author is substituted for {{author}}. Empty when unset.
	Author string `json:"author,omitempty" yaml:"author,omitempty"`

	// TemplateURL locates the template repository.
	TemplateURL string `json:"template_url" yaml:"template_url"`

	// TemplateRef is an optional branch or tag.
	TemplateRef string `json:"template_ref,omitempty" yaml:"template_ref,omitempty"`

	// OutputDir is where the generated project is written.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Force replaces a non-empty OutputDir instead of failing.
	Force bool `json:"force" yaml:"force"`

	// CloneDepth limits fetched history. 0 fetches everything.
	CloneDepth int `json:"clone_depth,omitempty" yaml:"clone_depth,omitempty"`

	// AdditionalParams are user placeholders beyond the built-ins.
	AdditionalParams map[string]string `json:"additional_params,omitempty" yaml:"additional_params,omitempty"`
}

// LogConfig contains logging-related settings.
type LogConfig struct {
	// Timestamps controls whether timestamps are shown in log output.
	// Default: true. Override with --timestamps flag.
	Timestamps *bool `mapstructure:"timestamps" yaml:"timestamps,omitempty"`
}

// Config holds user defaults loaded from ~/.gwa/config.yaml and GWA_*
// environment variables.
type Config struct {
	// Author is the default author.
	// Env: GWA_AUTHOR
	Author string `mapstructure:"author"`

	// Description is the default project description.
	// Env: GWA_DESCRIPTION
	Description string `mapstructure:"description"`

	// TemplateURL is the default template locator.
	// Env: GWA_TEMPLATE_URL
	TemplateURL string `mapstructure:"template_url"`

	// TemplateRef is the default branch or tag.
	// Env: GWA_TEMPLATE_REF
	TemplateRef string `mapstructure:"template_ref"`

	// CloneDepth is the default clone depth, 0 for full history.
	// Env: GWA_CLONE_DEPTH
	CloneDepth int `mapstructure:"clone_depth"`

	// FetchTimeout bounds how long a template fetch may take.
	// Env: GWA_FETCH_TIMEOUT
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`

	// Params are default additional placeholders.
	Params map[string]string `mapstructure:"params"`

	// Log contains logging-related settings.
	Log LogConfig `mapstructure:"log"`
}

// DefaultConfig returns a Config with all default values populated.
// Used by `gwa config init` to generate the initial config file.
func DefaultConfig() *Config {
	return &Config{
		Description:  DefaultDescription,
		TemplateURL:  DefaultTemplateURL,
		FetchTimeout: DefaultFetchTimeout,
		Params:       map[string]string{},
	}
}

// WithDefaults returns a copy of c with unset fields filled from DefaultConfig.
func (c *Config) WithDefaults() *Config {
	out := *c
	def := DefaultConfig()
	if out.Description == "" {
		out.Description = def.Description
	}
	if out.TemplateURL == "" {
		out.TemplateURL = def.TemplateURL
	}
	if out.FetchTimeout <= 0 {
		out.FetchTimeout = def.FetchTimeout
	}
	if out.Params == nil {
		out.Params = def.Params
	}
	return &out
}

// NewProject seeds a ProjectConfig named name from the user defaults.
// The output directory defaults to ./<name>.
func (c *Config) NewProject(name string) ProjectConfig {
	params := make(map[string]string, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}
	return ProjectConfig{
		ProjectName:      name,
		Description:      c.Description,
		Author:           c.Author,
		TemplateURL:      c.TemplateURL,
		TemplateRef:      c.TemplateRef,
		OutputDir:        DefaultOutputFor(name),
		CloneDepth:       c.CloneDepth,
		AdditionalParams: params,
	}
}

// DefaultOutputFor returns the output directory used when none is given.
func DefaultOutputFor(name string) string {
	if name == "" {
		return DefaultOutputDir
	}
	return "." + string(filepath.Separator) + name
}
