package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Yrrrrrf/gwa/internal/output"
	"github.com/Yrrrrrf/gwa/internal/version"
)

// versionReport is the structured form of `gwa version`.
type versionReport struct {
	CLI version.Info          `json:"cli" yaml:"cli"`
	Git version.GitBinaryInfo `json:"git" yaml:"git"`
}

// NewVersionCmd creates the version command.
func NewVersionCmd(_ *GlobalConfig) *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Show gwa CLI version information.

Displays:
  - gwa CLI version, commit, and build date
  - git client version and whether it is supported (minimum ` + version.MinGitVersion + `)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := output.ParseOutputFormat(formatFlag)
			if err != nil {
				return validationExit(err)
			}

			report := versionReport{
				CLI: version.Get(),
				Git: version.DetectGit(cmd.Context()),
			}

			if format != output.FormatText {
				return output.WriteStructured(cmd.OutOrStdout(), format, report)
			}

			output.Println(version.FullVersionString(report.CLI, report.Git))
			if report.Git.Found && !report.Git.Compatible {
				output.Warn("git client is older than supported", "min", version.MinGitVersion)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "text",
		fmt.Sprintf("Output format (%s)", strings.Join(output.ValidFormats(), ", ")))

	return cmd
}
