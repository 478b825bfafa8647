package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Yrrrrrf/gwa/internal/config"
	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/form"
	"github.com/Yrrrrrf/gwa/internal/generator"
	"github.com/Yrrrrrf/gwa/internal/output"
)

type createOptions struct {
	description  string
	author       string
	templateURL  string
	templateRef  string
	outputDir    string
	depth        int
	fetchTimeout time.Duration
	params       []string
	paramsFile   string
	force        bool
	yes          bool
	format       string
}

// NewCreateCmd creates the create command.
func NewCreateCmd(g *GlobalConfig) *cobra.Command {
	opts := &createOptions{}

	c := &cobra.Command{
		Use:   "create [project-name]",
		Short: "Create a new project from a template",
		Long: `Create a new project from a git template.

Placeholders such as {{project_name}}, {{description}} and {{author}} are
replaced in file names and contents. Extra placeholders come from --param
and --params-file. Unknown placeholders are left as they are and reported.

Without a project name on an interactive terminal, a form asks for the
values. Use --yes to skip the form and accept defaults.

Examples:
  # Create ./my-app from the default template
  gwa create my-app --yes

  # Use a specific template branch with a shallow clone
  gwa create my-app --template https://github.com/acme/tpl.git --branch v2 --depth 1

  # Provide extra placeholders
  gwa create my-app --param license=MIT --params-file params.yaml

  # Replace an existing directory
  gwa create my-app --output-dir ./existing --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runCreate(c, args, g, opts)
		},
	}

	f := c.Flags()
	f.StringVarP(&opts.description, "description", "d", "", "Project description (default from config)")
	f.StringVarP(&opts.author, "author", "a", "", "Project author (env: GWA_AUTHOR)")
	f.StringVarP(&opts.templateURL, "template", "t", "", "Template repository URL or local path (env: GWA_TEMPLATE_URL)")
	f.StringVarP(&opts.templateRef, "branch", "b", "", "Template branch or tag (env: GWA_TEMPLATE_REF)")
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "Output directory (defaults to ./<project-name>)")
	f.IntVar(&opts.depth, "depth", 0, "Clone depth; 0 fetches full history (env: GWA_CLONE_DEPTH)")
	f.DurationVar(&opts.fetchTimeout, "fetch-timeout", 0, "Maximum time for the template fetch (env: GWA_FETCH_TIMEOUT)")
	f.StringArrayVarP(&opts.params, "param", "p", nil, "Extra placeholder as key=value (repeatable)")
	f.StringVar(&opts.paramsFile, "params-file", "", "YAML file with extra placeholders")
	f.BoolVarP(&opts.force, "force", "f", false, "Replace a non-empty output directory")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Skip the interactive form and use defaults")
	f.StringVar(&opts.format, "format", "text",
		fmt.Sprintf("Result format (%s)", strings.Join(output.ValidFormats(), ", ")))

	return c
}

func runCreate(c *cobra.Command, args []string, g *GlobalConfig, opts *createOptions) error {
	format, err := output.ParseOutputFormat(opts.format)
	if err != nil {
		return validationExit(err)
	}

	ctx, stop := signal.NotifyContext(c.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, timeout, err := resolveProjectConfig(c, args, g, opts)
	if err != nil {
		return validationExit(err)
	}

	switch {
	case cfg.ProjectName == "" && !opts.yes && output.IsInteractive():
		cfg, err = form.Run(ctx, cfg)
		if err != nil {
			return exitWith(err)
		}
	case cfg.ProjectName == "":
		return validationExit(oerrors.NewValidationError(
			"project name is required", "project_name",
			"Pass the project name as an argument: gwa create <project-name>"))
	case cfg.OutputDir == "":
		cfg.OutputDir = config.DefaultOutputFor(cfg.ProjectName)
	}

	if err := config.ValidateProjectConfig(&cfg); err != nil {
		return validationExit(err)
	}

	log := output.ProjectLogger(cfg.ProjectName)
	gen := generator.New(
		generator.WithFetchTimeout(timeout),
		generator.WithStateObserver(func(s generator.State) {
			log.Debug("state changed", "state", s)
		}),
	)

	var res *generator.Result
	generate := func(ctx context.Context) error {
		var genErr error
		res, genErr = gen.Generate(ctx, cfg)
		return genErr
	}

	if format == output.FormatText {
		err = output.RunWithSpinner(ctx, generate,
			output.WithTitle(fmt.Sprintf("Generating %s from %s", cfg.ProjectName, cfg.TemplateURL)))
	} else {
		err = generate(ctx)
	}
	if err != nil {
		return exitWith(err)
	}

	if res.UnresolvedPlaceholders > 0 {
		log.Warn("unresolved placeholders left in output",
			"count", res.UnresolvedPlaceholders,
			"keys", strings.Join(res.UnresolvedKeys, ", "))
	}

	if format != output.FormatText {
		if err := output.WriteStructured(c.OutOrStdout(), format, res); err != nil {
			return exitWith(fmt.Errorf("writing result: %w", err))
		}
		return nil
	}

	output.Print(renderResult(cfg, res))
	return nil
}

// resolveProjectConfig merges flags over environment, config file and
// built-in defaults. The output directory stays empty when neither a flag
// nor a project name determines it yet.
func resolveProjectConfig(c *cobra.Command, args []string, g *GlobalConfig, opts *createOptions) (config.ProjectConfig, time.Duration, error) {
	base := g.Config
	if base == nil {
		base = config.DefaultConfig()
	}
	loader := g.Loader
	if loader == nil {
		loader = config.NewLoader()
	}
	f := c.Flags()

	cfg := config.ProjectConfig{Force: opts.force}
	if len(args) > 0 {
		cfg.ProjectName = args[0]
	}

	var values []config.ResolvedValue
	var rv config.ResolvedValue

	cfg.Description, rv = config.Resolve(loader, "description", f.Changed("description"), opts.description, base.Description)
	values = append(values, rv)
	cfg.Author, rv = config.Resolve(loader, "author", f.Changed("author"), opts.author, base.Author)
	values = append(values, rv)
	cfg.TemplateURL, rv = config.Resolve(loader, "template_url", f.Changed("template"), opts.templateURL, base.TemplateURL)
	values = append(values, rv)
	cfg.TemplateRef, rv = config.Resolve(loader, "template_ref", f.Changed("branch"), opts.templateRef, base.TemplateRef)
	values = append(values, rv)
	cfg.CloneDepth, rv = config.Resolve(loader, "clone_depth", f.Changed("depth"), opts.depth, base.CloneDepth)
	values = append(values, rv)
	timeout, rv := config.Resolve(loader, "fetch_timeout", f.Changed("fetch-timeout"), opts.fetchTimeout, base.FetchTimeout)
	values = append(values, rv)

	if f.Changed("output-dir") {
		cfg.OutputDir = opts.outputDir
	} else if cfg.ProjectName != "" {
		cfg.OutputDir = config.DefaultOutputFor(cfg.ProjectName)
	}

	var fileParams map[string]string
	if opts.paramsFile != "" {
		var err error
		fileParams, err = config.LoadParamsFile(opts.paramsFile)
		if err != nil {
			return cfg, 0, err
		}
	}
	flagParams, err := config.ParseParams(opts.params)
	if err != nil {
		return cfg, 0, err
	}
	cfg.AdditionalParams = config.MergeParams(base.Params, fileParams, flagParams)

	config.LogResolvedValues(values)
	return cfg, timeout, nil
}

// renderResult formats a successful generation for the terminal.
func renderResult(cfg config.ProjectConfig, res *generator.Result) string {
	var sb strings.Builder

	sb.WriteString(output.FormatCheckmark(fmt.Sprintf("Created project %s in %s",
		output.StyleNoun.Render(cfg.ProjectName), res.OutputPath)))
	sb.WriteString("\n\n")

	binary := make(map[string]bool, len(res.BinaryPaths))
	for _, p := range res.BinaryPaths {
		binary[p] = true
	}
	entries := make([]output.FileEntry, 0, len(res.Files))
	for _, f := range res.Files {
		entries = append(entries, output.FileEntry{
			Path:       f,
			Binary:     binary[f],
			Unresolved: res.UnresolvedByPath[f],
		})
	}
	sb.WriteString(output.RenderFileTree(filepath.Base(res.OutputPath), entries))
	sb.WriteString("\n")

	tpl := res.Template
	ref := tpl.Ref
	if ref == "" {
		ref = "default branch"
	}
	commit := tpl.Commit
	if len(commit) > 12 {
		commit = commit[:12]
	}
	sb.WriteString(output.StyleDim.Render(fmt.Sprintf("Template %s @ %s (%s, %d commits fetched)",
		tpl.Source, ref, commit, tpl.HistoryEntries)))
	sb.WriteString("\n")

	sb.WriteString(output.FormatStatusLine(fmt.Sprintf("%d files", res.FilesWritten), writtenStatus(res)))
	sb.WriteString("\n")
	if res.UnresolvedPlaceholders > 0 {
		sb.WriteString(output.FormatStatusLine(
			output.FormatWarningCount(res.UnresolvedPlaceholders, "unresolved placeholder"),
			output.StatusUnresolved))
		sb.WriteString("\n")
	}

	sb.WriteString("\nNext steps:\n")
	sb.WriteString("  cd " + displayPath(res.OutputPath) + "\n")
	return sb.String()
}

func writtenStatus(res *generator.Result) string {
	if res.Replaced {
		return output.StatusReplaced
	}
	return output.StatusWritten
}

// displayPath returns path relative to the working directory when shorter.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}
