package materialize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/testutil"
)

func stagedTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "README.md", "# demo\n")
	testutil.WriteFile(t, dir, "src/main.rs", "fn main() {}\n")
	testutil.WriteFileMode(t, dir, "bin/run", []byte("#!/bin/sh\n"), 0o755)
	return dir
}

func TestCheck(t *testing.T) {
	base := t.TempDir()
	testutil.WriteFile(t, base, "full/keep.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(base, "empty"), 0o755))
	testutil.WriteFile(t, base, "file.txt", "x")

	tests := []struct {
		name    string
		path    string
		force   bool
		want    TargetState
		wantErr error
	}{
		{name: "missing", path: "nope", want: TargetMissing},
		{name: "empty", path: "empty", want: TargetEmpty},
		{name: "non-empty without force", path: "full", want: TargetNonEmpty, wantErr: oerrors.ErrConflict},
		{name: "non-empty with force", path: "full", force: true, want: TargetNonEmpty},
		{name: "regular file", path: "file.txt", force: true, wantErr: oerrors.ErrFileSystem},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, err := New(tt.force).Check(filepath.Join(base, tt.path))
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				if tt.wantErr == oerrors.ErrConflict {
					assert.Equal(t, tt.want, state)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestMaterialize_NewDirectory(t *testing.T) {
	staged := stagedTree(t)
	out := filepath.Join(t.TempDir(), "a", "b", "demo")

	res, err := New(false).Materialize(context.Background(), staged, out)
	require.NoError(t, err)

	assert.Equal(t, 3, res.FilesWritten)
	assert.False(t, res.Replaced)
	assert.Equal(t, StrategyRename, res.Strategy)
	assert.True(t, filepath.IsAbs(res.OutputPath))
	assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, out))

	info, err := os.Stat(filepath.Join(out, "bin", "run"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary siblings may remain")
}

func TestMaterialize_EmptyDirectory(t *testing.T) {
	staged := stagedTree(t)
	out := filepath.Join(t.TempDir(), "demo")
	require.NoError(t, os.Mkdir(out, 0o755))

	res, err := New(false).Materialize(context.Background(), staged, out)
	require.NoError(t, err)
	assert.False(t, res.Replaced)
	assert.Equal(t, StrategyInPlace, res.Strategy)
	assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, out))
}

func TestMaterialize_ExistingDirectoryKeepsMode(t *testing.T) {
	tests := []struct {
		name     string
		force    bool
		contents map[string]string
		strategy Strategy
	}{
		{name: "empty", strategy: StrategyInPlace},
		{name: "non-empty with force", force: true, contents: map[string]string{"stale.txt": "old"}, strategy: StrategyRename},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staged := stagedTree(t)
			require.NoError(t, os.Chmod(staged, 0o755))
			out := filepath.Join(t.TempDir(), "demo")
			require.NoError(t, os.Mkdir(out, 0o700))
			for name, content := range tt.contents {
				testutil.WriteFile(t, out, name, content)
			}
			require.NoError(t, os.Chmod(out, 0o700))

			res, err := New(tt.force).Materialize(context.Background(), staged, out)
			require.NoError(t, err)
			assert.Equal(t, tt.strategy, res.Strategy)
			assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, out))

			info, err := os.Stat(out)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
		})
	}
}

func TestMaterialize_NewDirectoryTakesTemplateMode(t *testing.T) {
	staged := stagedTree(t)
	require.NoError(t, os.Chmod(staged, 0o750))
	out := filepath.Join(t.TempDir(), "demo")

	_, err := New(false).Materialize(context.Background(), staged, out)
	require.NoError(t, err)

	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm())
}

func TestMaterialize_SymlinkedOutputDirectory(t *testing.T) {
	tests := []struct {
		name     string
		force    bool
		contents map[string]string
	}{
		{name: "empty target"},
		{name: "non-empty target with force", force: true, contents: map[string]string{"stale.txt": "old"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			staged := stagedTree(t)
			base := t.TempDir()
			data := filepath.Join(base, "data")
			require.NoError(t, os.Mkdir(data, 0o700))
			for name, content := range tt.contents {
				testutil.WriteFile(t, data, name, content)
			}
			link := filepath.Join(base, "out")
			require.NoError(t, os.Symlink(data, link))

			res, err := New(tt.force).Materialize(context.Background(), staged, link)
			require.NoError(t, err)

			info, err := os.Lstat(link)
			require.NoError(t, err)
			assert.NotZero(t, info.Mode()&os.ModeSymlink, "output link must survive")

			assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, data))
			want, err := filepath.EvalSymlinks(data)
			require.NoError(t, err)
			assert.Equal(t, want, res.OutputPath)

			info, err = os.Stat(data)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
		})
	}
}

func TestMaterialize_ImmovableTargetFallsBackInPlace(t *testing.T) {
	staged := stagedTree(t)
	out := filepath.Join(t.TempDir(), "demo")
	testutil.WriteFile(t, out, "stale.txt", "old")
	abs, err := filepath.EvalSymlinks(out)
	require.NoError(t, err)

	// Simulate a mount point: the directory itself refuses to move.
	rename = func(oldpath, newpath string) error {
		if oldpath == abs {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EBUSY}
		}
		return os.Rename(oldpath, newpath)
	}
	t.Cleanup(func() { rename = os.Rename })

	res, err := New(true).Materialize(context.Background(), staged, out)
	require.NoError(t, err)
	assert.Equal(t, StrategyInPlace, res.Strategy)
	assert.True(t, res.Replaced)
	assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, out))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "staging sibling must be removed")
}

func TestMaterialize_MoveAsideFailureIsFileSystemError(t *testing.T) {
	staged := stagedTree(t)
	out := filepath.Join(t.TempDir(), "demo")
	testutil.WriteFile(t, out, "keep.txt", "precious")
	abs, err := filepath.EvalSymlinks(out)
	require.NoError(t, err)

	rename = func(oldpath, newpath string) error {
		if oldpath == abs {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.ENOSPC}
		}
		return os.Rename(oldpath, newpath)
	}
	t.Cleanup(func() { rename = os.Rename })

	_, err = New(true).Materialize(context.Background(), staged, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrFileSystem))
	assert.Equal(t, map[string]string{"keep.txt": "precious"}, testutil.ReadTree(t, out))
}

func TestMaterialize_ConflictLeavesTargetUntouched(t *testing.T) {
	staged := stagedTree(t)
	out := filepath.Join(t.TempDir(), "demo")
	testutil.WriteFile(t, out, "keep.txt", "precious")

	_, err := New(false).Materialize(context.Background(), staged, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrConflict))

	assert.Equal(t, map[string]string{"keep.txt": "precious"}, testutil.ReadTree(t, out))
}

func TestMaterialize_ForceReplacesExactly(t *testing.T) {
	staged := stagedTree(t)
	out := filepath.Join(t.TempDir(), "demo")
	testutil.WriteFile(t, out, "stale.txt", "old")
	testutil.WriteFile(t, out, "src/old.rs", "old")

	res, err := New(true).Materialize(context.Background(), staged, out)
	require.NoError(t, err)
	assert.True(t, res.Replaced)

	assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, out))

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "backup and staging siblings must be removed")
}

func TestMaterialize_WorkingDirectoryInPlace(t *testing.T) {
	staged := stagedTree(t)
	out := t.TempDir()
	testutil.WriteFile(t, out, "stale.txt", "old")
	t.Chdir(out)

	res, err := New(true).Materialize(context.Background(), staged, ".")
	require.NoError(t, err)
	assert.Equal(t, StrategyInPlace, res.Strategy)
	assert.True(t, res.Replaced)
	assert.Equal(t, 3, res.FilesWritten)
	assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, out))
}

func TestMaterialize_CancelledBeforeWrite(t *testing.T) {
	staged := stagedTree(t)
	out := filepath.Join(t.TempDir(), "demo")
	testutil.WriteFile(t, out, "keep.txt", "precious")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(true).Materialize(ctx, staged, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrCancelled))
	assert.Equal(t, map[string]string{"keep.txt": "precious"}, testutil.ReadTree(t, out))
}

func TestMaterialize_FailureRemovesCreatedParents(t *testing.T) {
	base := t.TempDir()
	staged := filepath.Join(base, "does-not-exist")
	out := filepath.Join(base, "x", "y", "demo")

	_, err := New(false).Materialize(context.Background(), staged, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, oerrors.ErrFileSystem))

	_, statErr := os.Stat(filepath.Join(base, "x"))
	assert.True(t, os.IsNotExist(statErr), "created parents must be removed")
}

func TestMaterialize_UnwritableParentFallsBackInPlace(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	staged := stagedTree(t)
	parent := t.TempDir()
	out := filepath.Join(parent, "demo")
	testutil.WriteFile(t, out, "stale.txt", "old")
	require.NoError(t, os.Chmod(parent, 0o555))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })

	res, err := New(true).Materialize(context.Background(), staged, out)
	require.NoError(t, err)
	assert.Equal(t, StrategyInPlace, res.Strategy)
	assert.Equal(t, testutil.ReadTree(t, staged), testutil.ReadTree(t, out))
}

func TestMaterialize_Symlink(t *testing.T) {
	staged := stagedTree(t)
	require.NoError(t, os.Symlink("README.md", filepath.Join(staged, "LINK.md")))
	out := filepath.Join(t.TempDir(), "demo")

	res, err := New(false).Materialize(context.Background(), staged, out)
	require.NoError(t, err)
	assert.Equal(t, 4, res.FilesWritten)

	link, err := os.Readlink(filepath.Join(out, "LINK.md"))
	require.NoError(t, err)
	assert.Equal(t, "README.md", link)
}
