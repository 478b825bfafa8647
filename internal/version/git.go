package version

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/Masterminds/semver/v3"
)

// MinGitVersion is the oldest git client supported for template fetches.
const MinGitVersion = "2.0.0"

// gitVersionRegex matches git version output like "git version 2.43.0" or
// "git version 2.39.3 (Apple Git-146)".
var gitVersionRegex = regexp.MustCompile(`\d+\.\d+(?:\.\d+)?`)

// GitBinaryInfo describes the git client found on PATH.
type GitBinaryInfo struct {
	// Version is the git client version.
	Version string `json:"version" yaml:"version"`

	// Path is the path to the git binary.
	Path string `json:"path" yaml:"path"`

	// Found indicates if the git binary was found.
	Found bool `json:"found" yaml:"found"`

	// Compatible indicates if the version satisfies MinGitVersion.
	Compatible bool `json:"compatible" yaml:"compatible"`

	// Message provides additional information about compatibility.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

// DetectGit finds the git binary and checks its version.
func DetectGit(ctx context.Context) GitBinaryInfo {
	path, err := exec.LookPath("git")
	if err != nil {
		return GitBinaryInfo{
			Message: "git binary not found in PATH",
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, "version")
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return GitBinaryInfo{
			Path:    path,
			Found:   true,
			Message: "failed to get git version: " + err.Error(),
		}
	}

	v, err := ExtractGitVersion(out.String())
	if err != nil {
		return GitBinaryInfo{
			Path:    path,
			Found:   true,
			Message: err.Error(),
		}
	}

	compatible, msg := GitVersionCompatible(v)
	return GitBinaryInfo{
		Version:    v,
		Path:       path,
		Found:      true,
		Compatible: compatible,
		Message:    msg,
	}
}

// ExtractGitVersion extracts the version number from `git version` output.
func ExtractGitVersion(output string) (string, error) {
	match := gitVersionRegex.FindString(output)
	if match == "" {
		return "", fmt.Errorf("failed to parse git version from output: %q", output)
	}
	return match, nil
}

// GitVersionCompatible checks v against MinGitVersion.
func GitVersionCompatible(v string) (bool, string) {
	got, err := semver.NewVersion(v)
	if err != nil {
		return false, "incompatible - invalid version format"
	}
	constraint, err := semver.NewConstraint(">= " + MinGitVersion)
	if err != nil {
		return false, err.Error()
	}
	if !constraint.Check(got) {
		return false, fmt.Sprintf("incompatible - requires git >= %s", MinGitVersion)
	}
	return true, "compatible"
}

// String returns a human-readable git binary info string.
func (g GitBinaryInfo) String() string {
	if !g.Found {
		return "  Version: not found\n  Path:    -"
	}
	status := "compatible"
	if !g.Compatible {
		status = g.Message
	}
	return fmt.Sprintf("  Version: %s (%s)\n  Path:    %s", g.Version, status, g.Path)
}
