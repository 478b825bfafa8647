package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Yrrrrrf/gwa/internal/config"
)

// NewConfigPathCmd creates the config path command.
func NewConfigPathCmd(g *GlobalConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Long: `Print the configuration file path resolved from --config,
GWA_CONFIG or the default ~/.gwa/config.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(g.ConfigPath)
			if err != nil {
				return exitWith(err)
			}
			exists, _ := config.ConfigFileExists(path)
			if g.Verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (source: %s, exists: %t)\n", path, g.ConfigSource, exists)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
