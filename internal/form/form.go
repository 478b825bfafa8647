// Package form collects a ProjectConfig interactively.
package form

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/Yrrrrrf/gwa/internal/config"
	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
)

// Answers holds the raw values typed into the form.
type Answers struct {
	ProjectName string
	Description string
	Author      string
	TemplateURL string
	OutputDir   string
	CloneDepth  string
	Params      string
	Force       bool
}

// AnswersFrom seeds the form from an existing configuration.
func AnswersFrom(cfg config.ProjectConfig) Answers {
	a := Answers{
		ProjectName: cfg.ProjectName,
		Description: cfg.Description,
		Author:      cfg.Author,
		TemplateURL: cfg.TemplateURL,
		OutputDir:   cfg.OutputDir,
		Force:       cfg.Force,
	}
	if cfg.CloneDepth > 0 {
		a.CloneDepth = strconv.Itoa(cfg.CloneDepth)
	}
	keys := make([]string, 0, len(cfg.AdditionalParams))
	for k := range cfg.AdditionalParams {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+cfg.AdditionalParams[k])
	}
	a.Params = strings.Join(lines, "\n")
	return a
}

// Apply overlays the answers onto base and validates the result.
func (a Answers) Apply(base config.ProjectConfig) (config.ProjectConfig, error) {
	cfg := base
	cfg.ProjectName = strings.TrimSpace(a.ProjectName)
	cfg.Description = a.Description
	cfg.Author = a.Author
	cfg.TemplateURL = strings.TrimSpace(a.TemplateURL)
	cfg.Force = a.Force

	cfg.OutputDir = strings.TrimSpace(a.OutputDir)
	if cfg.OutputDir == "" {
		cfg.OutputDir = config.DefaultOutputFor(cfg.ProjectName)
	}

	depth, err := ParseDepth(a.CloneDepth)
	if err != nil {
		return cfg, err
	}
	cfg.CloneDepth = depth

	params, err := ParseParamLines(a.Params)
	if err != nil {
		return cfg, err
	}
	cfg.AdditionalParams = params

	if err := config.ValidateProjectConfig(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseDepth parses the clone depth field. Empty means full history.
func ParseDepth(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &config.ValidationError{Field: "clone_depth", Message: "must be a positive integer"}
	}
	return n, nil
}

// ParseParamLines parses one key=value pair per line, ignoring blank lines
// and lines starting with '#'.
func ParseParamLines(s string) (map[string]string, error) {
	var pairs []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pairs = append(pairs, line)
	}
	return config.ParseParams(pairs)
}

// Run shows the form seeded from base and returns the resulting config.
// Aborting the form is reported as a cancellation.
func Run(ctx context.Context, base config.ProjectConfig) (config.ProjectConfig, error) {
	a := AnswersFrom(base)
	if err := build(&a).RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) || errors.Is(err, context.Canceled) {
			return base, oerrors.New(oerrors.KindCancelled, "form aborted", err)
		}
		return base, fmt.Errorf("running form: %w", err)
	}
	return a.Apply(base)
}

func build(a *Answers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&a.ProjectName).
				Validate(config.ValidateProjectName),
			huh.NewInput().
				Title("Description").
				Value(&a.Description),
			huh.NewInput().
				Title("Author").
				Value(&a.Author),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Template").
				Description("Git URL or local repository path").
				Value(&a.TemplateURL).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("template is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Output directory").
				Description("Leave empty for ./<project name>").
				Value(&a.OutputDir),
			huh.NewInput().
				Title("Clone depth").
				Description("Leave empty to fetch full history").
				Value(&a.CloneDepth).
				Validate(func(s string) error {
					_, err := ParseDepth(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewText().
				Title("Extra placeholders").
				Description("One key=value per line").
				Value(&a.Params).
				Validate(func(s string) error {
					_, err := ParseParamLines(s)
					return err
				}),
			huh.NewConfirm().
				Title("Replace a non-empty output directory?").
				Value(&a.Force),
		),
	)
}
