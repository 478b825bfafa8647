// Package materialize writes a staged project tree into its final output
// directory under the overwrite policy.
package materialize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/output"
)

// TargetState describes the output directory before materialization.
type TargetState int

const (
	// TargetMissing means the output directory does not exist.
	TargetMissing TargetState = iota

	// TargetEmpty means the output directory exists and is empty.
	TargetEmpty

	// TargetNonEmpty means the output directory has entries.
	TargetNonEmpty
)

// Strategy names how the tree was committed.
type Strategy string

const (
	// StrategyRename writes a sibling directory and renames it into place.
	StrategyRename Strategy = "rename"

	// StrategyInPlace clears and writes the directory directly. A failed
	// write leaves the directory empty.
	StrategyInPlace Strategy = "in-place"
)

// Result describes a completed materialization.
type Result struct {
	// OutputPath is the canonical absolute output path.
	OutputPath string

	// FilesWritten counts regular files and symlinks written.
	FilesWritten int

	// Replaced is true when existing contents were removed.
	Replaced bool

	// Strategy is how the tree was committed.
	Strategy Strategy
}

// Materializer commits staged trees to output directories.
type Materializer struct {
	force bool
}

// New creates a materializer. With force, non-empty output directories
// are replaced instead of rejected.
func New(force bool) *Materializer {
	return &Materializer{force: force}
}

// Check applies the conflict policy to outputDir without writing anything.
func (m *Materializer) Check(outputDir string) (TargetState, error) {
	info, err := os.Stat(outputDir)
	if errors.Is(err, fs.ErrNotExist) {
		return TargetMissing, nil
	}
	if err != nil {
		return TargetMissing, fsError("checking output directory", outputDir, err)
	}
	if !info.IsDir() {
		return TargetMissing, oerrors.New(oerrors.KindFileSystem,
			fmt.Sprintf("output path %s exists and is not a directory", outputDir), nil)
	}

	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return TargetMissing, fsError("reading output directory", outputDir, err)
	}
	if len(entries) == 0 {
		return TargetEmpty, nil
	}
	if !m.force {
		return TargetNonEmpty, oerrors.New(oerrors.KindConflict,
			fmt.Sprintf("output directory %s is not empty", outputDir), nil).
			WithHint("Use --force to replace its contents, or choose a different --output-dir.")
	}
	return TargetNonEmpty, nil
}

// Materialize copies the staged tree into outputDir. On failure outputDir
// is either untouched or, when it had to be cleared in place, empty.
func (m *Materializer) Materialize(ctx context.Context, staged, outputDir string) (*Result, error) {
	abs, err := filepath.Abs(outputDir)
	if err != nil {
		return nil, fsError("resolving output directory", outputDir, err)
	}

	state, err := m.Check(abs)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, oerrors.Classify(err, "materializing", oerrors.KindCancelled)
	}

	// An existing output directory keeps its identity: a symlink is
	// followed to the directory it names, and that directory's mode is
	// kept instead of the template root's.
	var keepMode fs.FileMode
	if state != TargetMissing {
		if abs, err = filepath.EvalSymlinks(abs); err != nil {
			return nil, fsError("resolving output directory", outputDir, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fsError("checking output directory", abs, err)
		}
		keepMode = info.Mode().Perm()
	}

	parent := filepath.Dir(abs)
	created, err := mkdirParents(parent)
	if err != nil {
		return nil, fsError("creating parent directories", parent, err)
	}

	res := &Result{Replaced: state == TargetNonEmpty}

	// An empty directory has nothing to protect, so it is filled directly.
	strategy := StrategyRename
	if state == TargetEmpty || containsWorkingDir(abs) || parent == abs {
		strategy = StrategyInPlace
	}

	var count int
	if strategy == StrategyRename {
		count, err = m.commitRename(ctx, staged, abs, state, keepMode)
		switch {
		case errors.Is(err, errSiblingDenied):
			output.Debug("sibling directory not writable, writing in place", "parent", parent)
			strategy = StrategyInPlace
		case errors.Is(err, errTargetPinned):
			output.Debug("output directory cannot be moved, writing in place", "path", abs)
			strategy = StrategyInPlace
		}
	}
	if strategy == StrategyInPlace {
		count, err = m.commitInPlace(ctx, staged, abs, state, keepMode)
	}
	if err != nil {
		if created != "" {
			_ = os.RemoveAll(created)
		}
		return nil, oerrors.Classify(err, "materializing", oerrors.KindFileSystem)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		canonical = abs
	}

	res.OutputPath = canonical
	res.FilesWritten = count
	res.Strategy = strategy

	output.Debug("output materialized",
		"path", canonical,
		"files", count,
		"strategy", strategy,
		"replaced", res.Replaced)

	return res, nil
}

var (
	errSiblingDenied = errors.New("cannot create sibling directory")
	errTargetPinned  = errors.New("cannot move output directory")
)

// rename is os.Rename, replaceable in tests.
var rename = os.Rename

// pinned reports whether a rename of an existing directory failed because
// the directory itself cannot move, as with mount points.
func pinned(err error) bool {
	return errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.EXDEV) ||
		errors.Is(err, fs.ErrPermission)
}

// commitRename writes the tree next to abs and renames it into place.
// Existing contents are moved aside first and restored if the swap fails.
// A non-zero keepMode is applied to the new directory.
func (m *Materializer) commitRename(ctx context.Context, staged, abs string, state TargetState, keepMode fs.FileMode) (int, error) {
	parent, leaf := filepath.Dir(abs), filepath.Base(abs)

	tmp, err := os.MkdirTemp(parent, "."+leaf+".gwa-new-*")
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return 0, errSiblingDenied
		}
		return 0, fsError("creating staging sibling", parent, err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(tmp)
		}
	}()

	count, err := copyTree(ctx, staged, tmp)
	if err != nil {
		return 0, err
	}
	if err := setRootMode(staged, tmp, keepMode); err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if state == TargetMissing {
		if err := rename(tmp, abs); err != nil {
			return 0, fsError("moving output into place", abs, err)
		}
		committed = true
		return count, nil
	}

	backup, err := reserveName(parent, "."+leaf+".gwa-old-*")
	if err != nil {
		return 0, fsError("reserving backup name", parent, err)
	}
	if err := rename(abs, backup); err != nil {
		if pinned(err) {
			return 0, errTargetPinned
		}
		return 0, fsError("moving existing output aside", abs, err)
	}
	if err := rename(tmp, abs); err != nil {
		if rbErr := rename(backup, abs); rbErr != nil {
			output.Warn("failed to restore previous output", "backup", backup, "error", rbErr)
		}
		return 0, fsError("moving output into place", abs, err)
	}
	committed = true

	if err := os.RemoveAll(backup); err != nil {
		output.Warn("failed to remove previous output", "path", backup, "error", err)
	}
	return count, nil
}

// commitInPlace clears abs and writes into it directly. If writing fails
// the directory is cleared again so it is never left half-written. An
// existing directory keeps its inode, owner and mode.
func (m *Materializer) commitInPlace(ctx context.Context, staged, abs string, state TargetState, keepMode fs.FileMode) (int, error) {
	if state == TargetMissing {
		if err := os.Mkdir(abs, 0o755); err != nil {
			return 0, fsError("creating output directory", abs, err)
		}
	}
	if state == TargetNonEmpty {
		if err := clearDir(abs); err != nil {
			return 0, fsError("removing existing contents", abs, err)
		}
	}

	count, err := copyTree(ctx, staged, abs)
	if err == nil && state == TargetMissing {
		err = setRootMode(staged, abs, keepMode)
	}
	if err != nil {
		if state == TargetMissing {
			_ = os.RemoveAll(abs)
		} else if clearErr := clearDir(abs); clearErr != nil {
			output.Warn("failed to clear partially written output", "path", abs, "error", clearErr)
		}
		return 0, err
	}
	return count, nil
}

// setRootMode gives dir keepMode, or the mode of staged when keepMode is 0.
func setRootMode(staged, dir string, keepMode fs.FileMode) error {
	if keepMode == 0 {
		info, err := os.Stat(staged)
		if err != nil {
			return err
		}
		keepMode = info.Mode().Perm()
	}
	return os.Chmod(dir, keepMode)
}

// copyTree copies src into the existing directory dst, preserving
// permission bits but not timestamps. The mode of dst itself is left to
// the caller.
func copyTree(ctx context.Context, src, dst string) (int, error) {
	type dirPerm struct {
		path string
		perm fs.FileMode
	}
	var dirs []dirPerm
	count := 0

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			if rel == "." {
				return nil
			}
			if err := os.Mkdir(target, 0o755); err != nil {
				return err
			}
			dirs = append(dirs, dirPerm{target, info.Mode().Perm()})
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Symlink(link, target); err != nil {
				return err
			}
			count++
		case d.Type().IsRegular():
			if err := copyFile(path, target, info.Mode().Perm()); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		if err := os.Chmod(dirs[i].path, dirs[i].perm); err != nil {
			return 0, err
		}
	}
	return count, nil
}

func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, perm)
}

// clearDir removes every entry inside dir but keeps dir itself.
func clearDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// mkdirParents creates dir and any missing ancestors. It returns the
// topmost directory it created, or "" if dir already existed.
func mkdirParents(dir string) (string, error) {
	topmost := ""
	for p := dir; ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil {
			break
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		topmost = p
		if filepath.Dir(p) == p {
			break
		}
	}
	if topmost == "" {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return topmost, nil
}

// reserveName returns an unused path in dir matching pattern.
func reserveName(dir, pattern string) (string, error) {
	p, err := os.MkdirTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if err := os.Remove(p); err != nil {
		return "", err
	}
	return p, nil
}

// containsWorkingDir reports whether abs is the working directory or one
// of its ancestors; renaming it away would strand the process.
func containsWorkingDir(abs string) bool {
	wd, err := os.Getwd()
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(abs, wd)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func fsError(action, path string, err error) error {
	return oerrors.New(oerrors.KindFileSystem, fmt.Sprintf("%s %s", action, path), err)
}
