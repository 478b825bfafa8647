// Package generator sequences template fetch, parameter substitution and
// output materialization into a single generation.
package generator

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/Yrrrrrf/gwa/internal/config"
	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/fetch"
	"github.com/Yrrrrrf/gwa/internal/materialize"
	"github.com/Yrrrrrf/gwa/internal/output"
	"github.com/Yrrrrrf/gwa/internal/substitute"
	"github.com/Yrrrrrf/gwa/internal/workspace"
)

// State is a step of a single generation.
type State string

const (
	StateIdle          State = "idle"
	StateFetching      State = "fetching"
	StateSubstituting  State = "substituting"
	StateMaterializing State = "materializing"
	StateDone          State = "done"
	StateFailed        State = "failed"
	StateCancelled     State = "cancelled"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// Result is the success record of a generation.
type Result struct {
	// OutputPath is the canonical absolute path of the generated project.
	OutputPath string `json:"outputPath" yaml:"outputPath"`

	// FilesWritten counts regular files and symlinks written.
	FilesWritten int `json:"filesWritten" yaml:"filesWritten"`

	// Replaced is true when existing contents were removed (force).
	Replaced bool `json:"replaced" yaml:"replaced"`

	// Template describes the fetched template.
	Template workspace.Metadata `json:"template" yaml:"template"`

	// UnresolvedPlaceholders counts placeholder occurrences left verbatim.
	// Non-zero is a warning, never a failure.
	UnresolvedPlaceholders int `json:"unresolvedPlaceholders" yaml:"unresolvedPlaceholders"`

	// UnresolvedKeys lists the distinct unresolved placeholder names.
	UnresolvedKeys []string `json:"unresolvedKeys,omitempty" yaml:"unresolvedKeys,omitempty"`

	// UnresolvedByPath maps generated paths to their unresolved count.
	UnresolvedByPath map[string]int `json:"unresolvedByPath,omitempty" yaml:"unresolvedByPath,omitempty"`

	// BinaryFiles counts files copied without content substitution.
	BinaryFiles int `json:"binaryFiles" yaml:"binaryFiles"`

	// BinaryPaths lists the generated paths of those files.
	BinaryPaths []string `json:"binaryPaths,omitempty" yaml:"binaryPaths,omitempty"`

	// Files lists generated paths relative to OutputPath, sorted.
	Files []string `json:"files" yaml:"files"`
}

// Options configures a Generator.
type Options struct {
	// Fetcher retrieves templates. Defaults to the git client.
	Fetcher fetch.Fetcher

	// FetchTimeout bounds the fetch stage. Zero means no bound.
	FetchTimeout time.Duration

	// TempDir is the parent of workspaces. Empty uses the OS default.
	TempDir string

	// Workers bounds substitution parallelism. Defaults to NumCPU.
	Workers int

	// OnState is called on every state transition, if set.
	OnState func(State)
}

// Option configures a Generator.
type Option func(*Options)

// WithFetcher replaces the template fetcher.
func WithFetcher(f fetch.Fetcher) Option {
	return func(o *Options) { o.Fetcher = f }
}

// WithFetchTimeout bounds the fetch stage.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *Options) { o.FetchTimeout = d }
}

// WithTempDir sets where workspaces are created.
func WithTempDir(dir string) Option {
	return func(o *Options) { o.TempDir = dir }
}

// WithWorkers bounds substitution parallelism.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithStateObserver registers a callback for state transitions.
func WithStateObserver(fn func(State)) Option {
	return func(o *Options) { o.OnState = fn }
}

// Generator runs generations. It holds no state between calls and may be
// used concurrently for different output directories.
type Generator struct {
	opts Options
}

// New creates a Generator.
func New(opts ...Option) *Generator {
	o := Options{
		FetchTimeout: config.DefaultFetchTimeout,
		Workers:      runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Fetcher == nil {
		o.Fetcher = fetch.NewGitFetcher()
	}
	if o.Workers < 1 {
		o.Workers = runtime.NumCPU()
	}
	return &Generator{opts: o}
}

// Generate produces the project described by cfg.
//
// Stage sequence:
//  1. PREFLIGHT:     validate cfg, apply the conflict policy to OutputDir
//  2. FETCHING:      clone the template into a fresh workspace
//  3. SUBSTITUTING:  rewrite names and contents into the staging tree
//  4. MATERIALIZING: commit the staging tree to OutputDir
//
// The workspace is removed on every exit path. Every error returned is a
// *errors.GenerationError; a context cancellation is reported with
// KindCancelled.
func (g *Generator) Generate(ctx context.Context, cfg config.ProjectConfig) (_ *Result, err error) {
	log := output.ProjectLogger(cfg.ProjectName)
	state := StateIdle
	transition := func(next State) {
		if state.Terminal() {
			return
		}
		log.Debug("generation state", "from", state, "to", next)
		state = next
		if g.opts.OnState != nil {
			g.opts.OnState(next)
		}
	}
	defer func() {
		switch {
		case err == nil:
			transition(StateDone)
		case oerrors.KindOf(err, oerrors.KindFileSystem) == oerrors.KindCancelled:
			transition(StateCancelled)
		default:
			transition(StateFailed)
		}
	}()

	if verr := config.ValidateInvariants(&cfg); verr != nil {
		return nil, oerrors.New(oerrors.KindValidation, "invalid project configuration", verr)
	}

	mat := materialize.New(cfg.Force)
	if _, err := mat.Check(cfg.OutputDir); err != nil {
		return nil, oerrors.Classify(err, "preflight", oerrors.KindFileSystem)
	}
	if err := ctx.Err(); err != nil {
		return nil, oerrors.Classify(err, "preflight", oerrors.KindCancelled)
	}

	transition(StateFetching)
	ws, err := workspace.New(g.opts.TempDir)
	if err != nil {
		return nil, oerrors.New(oerrors.KindFileSystem, "creating workspace", err)
	}
	defer func() {
		if rmErr := ws.Remove(); rmErr != nil {
			log.Warn("failed to remove workspace", "path", ws.Root(), "error", rmErr)
		}
	}()

	start := time.Now()
	meta, err := g.fetch(ctx, cfg, ws.TemplateDir())
	if err != nil {
		return nil, err
	}
	ws.Metadata = meta
	log.Debug("stage complete", "stage", StateFetching,
		"template", cfg.TemplateURL,
		"depth", cfg.CloneDepth,
		"elapsed", time.Since(start).Round(time.Millisecond))

	transition(StateSubstituting)
	start = time.Now()
	values := substitute.NewMap(map[string]string{
		substitute.KeyProjectName: cfg.ProjectName,
		substitute.KeyDescription: cfg.Description,
		substitute.KeyAuthor:      cfg.Author,
	}, cfg.AdditionalParams)
	engine := substitute.NewEngine(values, substitute.WithWorkers(g.opts.Workers))
	sub, err := engine.Apply(ctx, ws.TemplateDir(), ws.StagingDir())
	if err != nil {
		return nil, oerrors.Classify(err, string(StateSubstituting), oerrors.KindFileSystem)
	}
	log.Debug("stage complete", "stage", StateSubstituting,
		"files", len(sub.Files),
		"unresolved", sub.Unresolved,
		"elapsed", time.Since(start).Round(time.Millisecond))

	transition(StateMaterializing)
	start = time.Now()
	mres, err := mat.Materialize(ctx, ws.StagingDir(), cfg.OutputDir)
	if err != nil {
		return nil, oerrors.Classify(err, string(StateMaterializing), oerrors.KindFileSystem)
	}
	log.Debug("stage complete", "stage", StateMaterializing,
		"files", mres.FilesWritten,
		"elapsed", time.Since(start).Round(time.Millisecond))

	return &Result{
		OutputPath:             mres.OutputPath,
		FilesWritten:           mres.FilesWritten,
		Replaced:               mres.Replaced,
		Template:               ws.Metadata,
		UnresolvedPlaceholders: sub.Unresolved,
		UnresolvedKeys:         sub.UnresolvedKeys,
		UnresolvedByPath:       sub.UnresolvedByPath,
		BinaryFiles:            sub.BinaryFiles,
		BinaryPaths:            sub.BinaryPaths,
		Files:                  sub.Files,
	}, nil
}

// fetch runs the fetcher under the fetch timeout. Exceeding the timeout is
// a fetch failure; cancellation of ctx itself is a cancellation.
func (g *Generator) fetch(ctx context.Context, cfg config.ProjectConfig, dest string) (workspace.Metadata, error) {
	fetchCtx := ctx
	cancel := context.CancelFunc(func() {})
	if g.opts.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, g.opts.FetchTimeout)
	}
	defer cancel()

	meta, err := g.opts.Fetcher.Fetch(fetchCtx, fetch.Request{
		URL:   cfg.TemplateURL,
		Ref:   cfg.TemplateRef,
		Depth: cfg.CloneDepth,
	}, dest)
	if err == nil {
		return meta, nil
	}

	stage := string(StateFetching)
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return meta, oerrors.Classify(ctx.Err(), stage, oerrors.KindCancelled)
	case errors.Is(fetchCtx.Err(), context.DeadlineExceeded):
		// Either our own bound or a deadline the caller placed on ctx.
		if oerrors.KindOf(err, oerrors.KindFetch) == oerrors.KindFetch {
			return meta, oerrors.Classify(err, stage, oerrors.KindFetch)
		}
		msg := fmt.Sprintf("template fetch timed out after %s", g.opts.FetchTimeout)
		if ctx.Err() != nil {
			msg = "template fetch exceeded the caller's deadline"
		}
		return meta, &oerrors.GenerationError{
			Kind:    oerrors.KindFetch,
			Stage:   stage,
			Message: msg,
			Hint:    "Check your network connection or raise --fetch-timeout.",
			Cause:   err,
		}
	default:
		return meta, oerrors.Classify(err, stage, oerrors.KindFetch)
	}
}
