package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk layout written by `gwa config init`.
type fileConfig struct {
	Author       string            `yaml:"author"`
	Description  string            `yaml:"description"`
	TemplateURL  string            `yaml:"template_url"`
	TemplateRef  string            `yaml:"template_ref"`
	CloneDepth   int               `yaml:"clone_depth"`
	FetchTimeout string            `yaml:"fetch_timeout"`
	Params       map[string]string `yaml:"params"`
	Log          struct {
		Timestamps bool `yaml:"timestamps"`
	} `yaml:"log"`
}

var keyComments = map[string]string{
	"author":        "Default value for {{author}}.",
	"description":   "Default value for {{description}}.",
	"template_url":  "Template repository: a git URL or a local repository path.",
	"template_ref":  "Branch or tag to check out. Empty uses the remote default.",
	"clone_depth":   "Commits of history to fetch. 0 fetches everything.",
	"fetch_timeout": "Maximum time a template fetch may take.",
	"params":        "Extra placeholders, e.g. license: MIT",
	"log":           "Logging settings.",
}

// RenderDefaultConfig returns the commented default config file.
func RenderDefaultConfig() ([]byte, error) {
	def := DefaultConfig()
	fc := fileConfig{
		Author:       def.Author,
		Description:  def.Description,
		TemplateURL:  def.TemplateURL,
		TemplateRef:  def.TemplateRef,
		CloneDepth:   def.CloneDepth,
		FetchTimeout: def.FetchTimeout.String(),
		Params:       def.Params,
	}
	fc.Log.Timestamps = true

	var doc yaml.Node
	if err := doc.Encode(fc); err != nil {
		return nil, fmt.Errorf("encoding default config: %w", err)
	}
	doc.HeadComment = "gwa configuration. Flags and GWA_* environment variables override these values."
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key := doc.Content[i]
		if c, ok := keyComments[key.Value]; ok {
			key.HeadComment = c
		}
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling default config: %w", err)
	}
	return data, nil
}

// WriteDefaultConfig writes the default config file to path, creating its
// directory with 0700 and the file with 0600.
func WriteDefaultConfig(path string) error {
	data, err := RenderDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
