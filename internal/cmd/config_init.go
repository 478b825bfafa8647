package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Yrrrrrf/gwa/internal/config"
	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/output"
)

// NewConfigInitCmd creates the config init command.
func NewConfigInitCmd(g *GlobalConfig) *cobra.Command {
	var forceFlag bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize default configuration",
		Long: `Initialize the gwa CLI configuration.

Writes a commented config file (default ~/.gwa/config.yaml) holding the
default author, description, template and clone settings.

Examples:
  # Initialize configuration
  gwa config init

  # Overwrite existing configuration
  gwa config init --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigInit(g, forceFlag)
		},
	}

	cmd.Flags().BoolVarP(&forceFlag, "force", "f", false,
		"Overwrite existing configuration")

	return cmd
}

func runConfigInit(g *GlobalConfig, force bool) error {
	path, err := config.ExpandPath(g.ConfigPath)
	if err != nil {
		return exitWith(oerrors.Wrap(oerrors.ErrFileSystem, "could not determine home directory"))
	}

	if _, err := os.Stat(path); err == nil && !force {
		return exitWith(&oerrors.DetailError{
			Type:     "validation failed",
			Message:  "configuration already exists",
			Location: path,
			Hint:     "Use --force to overwrite existing configuration.",
			Cause:    oerrors.ErrValidation,
		})
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return exitWith(&oerrors.DetailError{
			Type:     "filesystem error",
			Message:  err.Error(),
			Location: path,
			Cause:    oerrors.ErrFileSystem,
		})
	}

	output.Println(output.FormatCheckmark("Configuration initialized at " + path))
	output.Println("Edit it to set your default author and template.")

	return nil
}
