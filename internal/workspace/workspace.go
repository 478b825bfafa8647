// Package workspace manages the disposable directory that holds a fetched
// template tree for a single generation.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	templateDir = "template"
	stagingDir  = "staged"
	dirPattern  = "gwa-workspace-*"
)

// Metadata describes what was fetched into the workspace.
type Metadata struct {
	// Source is the locator the template was fetched from.
	Source string `json:"source" yaml:"source"`

	// Ref is the branch or tag requested, empty for the remote default.
	Ref string `json:"ref,omitempty" yaml:"ref,omitempty"`

	// Commit is the resolved commit hash of the fetched tree.
	Commit string `json:"commit" yaml:"commit"`

	// Depth is the requested clone depth, 0 for a full fetch.
	Depth int `json:"depth" yaml:"depth"`

	// HistoryEntries is the number of commits actually fetched.
	HistoryEntries int `json:"historyEntries" yaml:"historyEntries"`
}

// Workspace is a temporary directory owned by exactly one generation.
// It holds the fetched template tree and the substituted staging tree.
type Workspace struct {
	root     string
	Metadata Metadata
}

// New creates a workspace under parent. An empty parent uses the
// operating system's temporary directory.
func New(parent string) (*Workspace, error) {
	root, err := os.MkdirTemp(parent, dirPattern)
	if err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &Workspace{root: root}, nil
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// TemplateDir returns the directory the fetcher clones into. It does not
// exist until a fetch creates it.
func (w *Workspace) TemplateDir() string {
	return filepath.Join(w.root, templateDir)
}

// StagingDir returns the directory the substituted tree is written to.
func (w *Workspace) StagingDir() string {
	return filepath.Join(w.root, stagingDir)
}

// Remove deletes the workspace and everything in it. It is safe to call
// more than once.
func (w *Workspace) Remove() error {
	if w == nil || w.root == "" {
		return nil
	}
	if err := os.RemoveAll(w.root); err != nil {
		return fmt.Errorf("removing workspace %s: %w", w.root, err)
	}
	return nil
}
