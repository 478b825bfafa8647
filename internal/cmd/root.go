// Package cmd provides CLI command implementations.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Yrrrrrf/gwa/internal/config"
	"github.com/Yrrrrrf/gwa/internal/output"
)

// GlobalConfig holds CLI-wide configuration resolved during PersistentPreRunE.
// It is populated once at startup and passed explicitly into every sub-command
// constructor.
type GlobalConfig struct {
	// ConfigPath is the resolved config file path.
	ConfigPath string

	// ConfigSource is where ConfigPath came from.
	ConfigSource config.ConfigSource

	// Config holds user defaults with built-in defaults applied.
	Config *config.Config

	// Loader reports where each loaded value came from.
	Loader *config.Loader

	Verbose bool
}

// NewRootCmd creates the root command for the gwa CLI.
func NewRootCmd() *cobra.Command {
	g := &GlobalConfig{}

	var (
		configFlag     string
		verboseFlag    bool
		timestampsFlag bool
	)

	rootCmd := &cobra.Command{
		Use:   "gwa",
		Short: "Generate projects from git templates",
		Long: `gwa scaffolds new projects from git template repositories.

Templates are plain repositories whose file names and contents contain
{{placeholder}} tokens. gwa clones the template, substitutes the project
values and writes the result to the output directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			g.Verbose = verboseFlag
			return initializeGlobals(cmd, g, configFlag, timestampsFlag)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Path to config file (env: GWA_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&timestampsFlag, "timestamps", true, "Show timestamps in log output")

	rootCmd.AddCommand(NewCreateCmd(g))
	rootCmd.AddCommand(NewConfigCmd(g))
	rootCmd.AddCommand(NewVersionCmd(g))

	return rootCmd
}

// initializeGlobals sets up logging and loads configuration.
func initializeGlobals(cmd *cobra.Command, g *GlobalConfig, configFlag string, timestampsFlag bool) error {
	pathResult, err := config.ResolveConfigPath(config.ResolveConfigPathOptions{FlagValue: configFlag})
	if err != nil {
		return err
	}
	g.ConfigPath = pathResult.ConfigPath
	g.ConfigSource = pathResult.Source

	g.Loader = config.NewLoader()
	loaded, loadErr := g.Loader.LoadWithDefaults(g.ConfigPath)
	if loadErr != nil {
		// Commands that do not need defaults keep working.
		loaded = config.DefaultConfig()
	}
	g.Config = loaded

	// Timestamps: flag (if explicitly set) > config > default (nil = true)
	logCfg := output.LogConfig{Verbose: g.Verbose}
	if cmd.Flags().Changed("timestamps") {
		logCfg.Timestamps = output.BoolPtr(timestampsFlag)
	} else if loaded.Log.Timestamps != nil {
		logCfg.Timestamps = loaded.Log.Timestamps
	}
	output.SetupLogging(logCfg)

	if loadErr != nil {
		output.Warn("ignoring unreadable config file", "path", g.ConfigPath, "error", loadErr)
	}
	if err := loaded.Validate(); err != nil {
		return validationExit(err)
	}

	output.Debug("initializing CLI",
		"config", g.ConfigPath,
		"config_source", g.ConfigSource,
		"template_url", loaded.TemplateURL,
	)

	return nil
}
