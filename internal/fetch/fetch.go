// Package fetch retrieves remote templates into a local directory using the
// external git client.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/output"
	"github.com/Yrrrrrf/gwa/internal/workspace"
)

// allowedProtocols restricts the transports git may use for a template.
const allowedProtocols = "file:git:http:https:ssh"

// Request describes a template to fetch.
type Request struct {
	// URL is the template locator (remote URL or local repository path).
	URL string

	// Ref is an optional branch or tag.
	Ref string

	// Depth limits history to that many commits. 0 fetches everything.
	Depth int
}

// Fetcher retrieves a template tree into dest, which must not exist yet.
// Implementations return only after dest is fully populated.
type Fetcher interface {
	Fetch(ctx context.Context, req Request, dest string) (workspace.Metadata, error)
}

// GitFetcher clones templates with the git binary.
type GitFetcher struct {
	// GitPath overrides the git binary. Empty means look up "git" on PATH.
	GitPath string

	// WaitDelay bounds how long to wait for git's output pipes after the
	// process is killed on cancellation.
	WaitDelay time.Duration
}

// NewGitFetcher creates a fetcher that uses git from PATH.
func NewGitFetcher() *GitFetcher {
	return &GitFetcher{WaitDelay: 2 * time.Second}
}

// Fetch clones req into dest, records metadata and strips the .git directory.
func (f *GitFetcher) Fetch(ctx context.Context, req Request, dest string) (workspace.Metadata, error) {
	meta := workspace.Metadata{Source: req.URL, Ref: req.Ref, Depth: req.Depth}

	if err := validateRequest(req); err != nil {
		return meta, err
	}

	gitPath, err := f.gitBinary()
	if err != nil {
		return meta, oerrors.New(oerrors.KindFetch, "git client not available", err).
			WithHint("Install git and make sure it is on your PATH.")
	}

	locator, err := ResolveLocator(req.URL)
	if err != nil {
		return meta, oerrors.New(oerrors.KindValidation, "invalid template locator", err)
	}

	args := cloneArgs(req, locator, dest)
	output.Debug("cloning template", "url", req.URL, "ref", req.Ref, "depth", req.Depth)

	start := time.Now()
	if _, err := f.run(ctx, gitPath, "", args...); err != nil {
		return meta, classifyCloneError(ctx, req, err)
	}

	commit, err := f.run(ctx, gitPath, dest, "rev-parse", "HEAD")
	if err != nil {
		return meta, classifyCloneError(ctx, req, err)
	}
	meta.Commit = commit

	count, err := f.run(ctx, gitPath, dest, "rev-list", "--count", "HEAD")
	if err != nil {
		return meta, classifyCloneError(ctx, req, err)
	}
	meta.HistoryEntries, _ = strconv.Atoi(count)

	if err := os.RemoveAll(filepath.Join(dest, ".git")); err != nil {
		return meta, oerrors.New(oerrors.KindFileSystem, "removing template VCS metadata", err)
	}

	output.Debug("template fetched",
		"commit", meta.Commit,
		"history", meta.HistoryEntries,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return meta, nil
}

func (f *GitFetcher) gitBinary() (string, error) {
	if f.GitPath != "" {
		return f.GitPath, nil
	}
	return exec.LookPath("git")
}

// run executes git and returns trimmed stdout. Failures carry stderr.
func (f *GitFetcher) run(ctx context.Context, gitPath, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, gitPath, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_ALLOW_PROTOCOL="+allowedProtocols,
	)
	cmd.WaitDelay = f.WaitDelay

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &gitError{args: args, stderr: strings.TrimSpace(stderr.String()), err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// cloneArgs builds the clone command line. The locator always follows "--".
func cloneArgs(req Request, locator, dest string) []string {
	args := []string{"clone", "--quiet", "--no-tags"}
	if req.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(req.Depth))
	}
	if req.Ref != "" {
		args = append(args, "--branch", req.Ref, "--single-branch")
	}
	return append(args, "--", locator, dest)
}

func validateRequest(req Request) error {
	switch {
	case strings.TrimSpace(req.URL) == "":
		return oerrors.New(oerrors.KindValidation, "template locator is empty", nil)
	case strings.HasPrefix(req.URL, "-"):
		return oerrors.New(oerrors.KindValidation, fmt.Sprintf("template locator %q must not start with '-'", req.URL), nil)
	case strings.HasPrefix(req.Ref, "-"):
		return oerrors.New(oerrors.KindValidation, fmt.Sprintf("template ref %q must not start with '-'", req.Ref), nil)
	case req.Depth < 0:
		return oerrors.New(oerrors.KindValidation, fmt.Sprintf("clone depth must be positive, got %d", req.Depth), nil)
	}
	return nil
}

// ResolveLocator turns a local directory into a file:// URL so that git
// honours --depth. Anything else is passed through unchanged.
func ResolveLocator(locator string) (string, error) {
	if strings.Contains(locator, "://") || strings.HasPrefix(locator, "git@") {
		return locator, nil
	}
	info, err := os.Stat(locator)
	if err != nil || !info.IsDir() {
		return locator, nil
	}
	abs, err := filepath.Abs(locator)
	if err != nil {
		return "", err
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	return "file://" + slashed, nil
}

// classifyCloneError maps a git failure to a classified error.
func classifyCloneError(ctx context.Context, req Request, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return oerrors.New(oerrors.KindFetch, "fetch timed out", ctxErr).
				WithHint("Check network connectivity or raise --fetch-timeout.")
		}
		return oerrors.New(oerrors.KindCancelled, "fetch cancelled", ctxErr)
	}

	genErr := oerrors.New(oerrors.KindFetch, fmt.Sprintf("cloning %s", req.URL), err)

	var gitErr *gitError
	if errors.As(err, &gitErr) {
		msg := strings.ToLower(gitErr.stderr)
		switch {
		case req.Ref != "" && strings.Contains(msg, "not found in upstream"),
			req.Ref != "" && strings.Contains(msg, "remote branch"):
			genErr.WithHint(fmt.Sprintf("The ref %q does not exist in the template repository.", req.Ref))
		case strings.Contains(msg, "does not exist"),
			strings.Contains(msg, "not found"),
			strings.Contains(msg, "not appear to be a git repository"):
			genErr.WithHint("Check that the template URL points to an existing repository.")
		case strings.Contains(msg, "could not resolve host"),
			strings.Contains(msg, "unable to access"):
			genErr.WithHint("Check network connectivity and the template URL.")
		case strings.Contains(msg, "terminal prompts disabled"),
			strings.Contains(msg, "authentication failed"):
			genErr.WithHint("The template repository requires credentials; configure a git credential helper.")
		}
	}
	return genErr
}

// gitError carries the failed command's stderr.
type gitError struct {
	args   []string
	stderr string
	err    error
}

func (e *gitError) Error() string {
	if e.stderr == "" {
		return fmt.Sprintf("git %s: %v", e.args[0], e.err)
	}
	return fmt.Sprintf("git %s: %v: %s", e.args[0], e.err, e.stderr)
}

func (e *gitError) Unwrap() error {
	return e.err
}
