package substitute

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/output"
)

// Engine rewrites a template tree into a staging tree.
type Engine struct {
	values  Map
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the number of files transformed concurrently.
// Values below 1 fall back to runtime.NumCPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// NewEngine creates an engine that substitutes values.
func NewEngine(values Map, opts ...Option) *Engine {
	e := &Engine{values: values, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	return e
}

// Result summarises a substitution run.
type Result struct {
	// Files lists the slash-separated target paths of every file and
	// symlink written, sorted.
	Files []string

	// BinaryFiles is how many files were copied without content substitution.
	BinaryFiles int

	// BinaryPaths lists the target paths of those files, sorted.
	BinaryPaths []string

	// Unresolved counts placeholder occurrences left verbatim, in names
	// and contents.
	Unresolved int

	// UnresolvedByPath maps target paths to their unresolved count.
	UnresolvedByPath map[string]int

	// UnresolvedKeys lists the distinct unresolved names, sorted.
	UnresolvedKeys []string
}

type entryKind int

const (
	kindDir entryKind = iota
	kindFile
	kindSymlink
)

// entry is one template path scheduled for transformation.
type entry struct {
	kind   entryKind
	src    string
	rel    string // substituted, slash-separated, relative to dst
	perm   fs.FileMode
	target string // symlink target
}

// Apply transforms the tree at src into dst, which must not exist.
// Directories are created first, then files are transformed by a bounded
// worker pool; the first failure cancels the remaining work.
func (e *Engine) Apply(ctx context.Context, src, dst string) (*Result, error) {
	start := time.Now()
	res := &Result{UnresolvedByPath: make(map[string]int)}
	unresolved := make(map[string]struct{})

	var mu sync.Mutex
	record := func(rel string, rep Replacement) {
		if len(rep.Unresolved) == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		res.Unresolved += len(rep.Unresolved)
		res.UnresolvedByPath[rel] += len(rep.Unresolved)
		for _, name := range rep.Unresolved {
			unresolved[name] = struct{}{}
		}
	}

	entries, err := e.plan(src, record)
	if err != nil {
		return nil, err
	}

	if err := os.Mkdir(dst, 0o755); err != nil {
		return nil, fsError("creating staging directory", dst, err)
	}

	var dirs []entry
	for _, ent := range entries {
		if ent.kind != kindDir {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, oerrors.Classify(err, "substituting", oerrors.KindCancelled)
		}
		// Owner-writable until every file is in place.
		if err := os.Mkdir(filepath.Join(dst, filepath.FromSlash(ent.rel)), 0o755); err != nil {
			return nil, fsError("creating directory", ent.rel, err)
		}
		dirs = append(dirs, ent)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	var binMu sync.Mutex

	for _, ent := range entries {
		if ent.kind == kindDir {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		res.Files = append(res.Files, ent.rel)

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			target := filepath.Join(dst, filepath.FromSlash(ent.rel))
			if ent.kind == kindSymlink {
				if err := os.Symlink(ent.target, target); err != nil {
					return fsError("creating symlink", ent.rel, err)
				}
				return nil
			}
			binary, rep, err := e.transformFile(ent.src, target, ent.perm)
			if err != nil {
				return fsError("transforming file", ent.rel, err)
			}
			record(ent.rel, rep)
			if binary {
				binMu.Lock()
				res.BinaryPaths = append(res.BinaryPaths, ent.rel)
				binMu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, oerrors.Classify(err, "substituting", oerrors.KindFileSystem)
	}
	if err := ctx.Err(); err != nil {
		return nil, oerrors.Classify(err, "substituting", oerrors.KindCancelled)
	}

	// Restore template directory permissions deepest first.
	for i := len(dirs) - 1; i >= 0; i-- {
		path := filepath.Join(dst, filepath.FromSlash(dirs[i].rel))
		if err := os.Chmod(path, dirs[i].perm); err != nil {
			return nil, fsError("setting directory permissions", dirs[i].rel, err)
		}
	}

	res.BinaryFiles = len(res.BinaryPaths)
	sort.Strings(res.BinaryPaths)
	sort.Strings(res.Files)
	for name := range unresolved {
		res.UnresolvedKeys = append(res.UnresolvedKeys, name)
	}
	sort.Strings(res.UnresolvedKeys)

	output.Debug("substitution complete",
		"files", len(res.Files),
		"binary", res.BinaryFiles,
		"unresolved", res.Unresolved,
		"workers", e.workers,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return res, nil
}

// plan walks src in lexical order and computes each entry's substituted
// relative path. Parents are always planned before their children.
func (e *Engine) plan(src string, record func(string, Replacement)) ([]entry, error) {
	mapped := map[string]string{".": ""}
	seen := make(map[string]string)
	var entries []entry

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		name, rep := e.values.ReplaceString(d.Name())
		if err := validateName(name); err != nil {
			return oerrors.New(oerrors.KindFileSystem,
				fmt.Sprintf("unsupported path: %q renders to %q", filepath.ToSlash(rel), name), err)
		}

		target := name
		if parent := mapped[filepath.Dir(rel)]; parent != "" {
			target = parent + "/" + name
		}
		record(target, rep)

		if prev, dup := seen[target]; dup {
			return oerrors.New(oerrors.KindFileSystem,
				fmt.Sprintf("template paths %q and %q both render to %q", prev, filepath.ToSlash(rel), target), nil)
		}
		seen[target] = filepath.ToSlash(rel)

		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			mapped[rel] = target
			entries = append(entries, entry{kind: kindDir, src: path, rel: target, perm: info.Mode().Perm()})
		case d.Type()&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			entries = append(entries, entry{kind: kindSymlink, src: path, rel: target, target: link})
		case d.Type().IsRegular():
			entries = append(entries, entry{kind: kindFile, src: path, rel: target, perm: info.Mode().Perm()})
		default:
			output.Warn("skipping unsupported template entry", "path", filepath.ToSlash(rel), "type", d.Type().String())
		}
		return nil
	})
	if err != nil {
		return nil, oerrors.Classify(err, "substituting", oerrors.KindFileSystem)
	}
	return entries, nil
}

// transformFile writes src to dst with placeholders substituted, unless
// the content is binary, in which case it is copied byte for byte.
func (e *Engine) transformFile(src, dst string, perm fs.FileMode) (bool, Replacement, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return false, Replacement{}, err
	}

	binary := IsBinary(data)
	var rep Replacement
	if !binary {
		data, rep = e.values.Replace(data)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return binary, rep, err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return binary, rep, err
	}
	if err := f.Close(); err != nil {
		return binary, rep, err
	}
	// OpenFile is subject to umask.
	return binary, rep, os.Chmod(dst, perm)
}

// validateName rejects names that would escape or collapse their directory.
func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("name %q is not a valid path component", name)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("name %q contains a path separator", name)
	}
	return nil
}

func fsError(action, path string, err error) error {
	return oerrors.New(oerrors.KindFileSystem, fmt.Sprintf("%s %s", action, path), err)
}
