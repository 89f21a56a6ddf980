package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "taskdesk",
	Short: "Assign, track and review employee tasks",
	Long: `taskdesk is a small task tracker for a team of employees and their
administrators. Administrators create and assign tasks; employees move
them through not started, in progress and completed, then request
approval; administrators approve with a rating or decline with a reason.

The CLI talks to a taskdesk server (see "taskdesk serve") and keeps the
signed-in session in the data directory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFormat != formatText && outputFormat != formatJSON {
			return fmt.Errorf("invalid --format %q: must be text or json", outputFormat)
		}
		if verbose && Logger != nil {
			Logger.SetLevel(logrus.DebugLevel)
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "taskdesk %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", formatText, "Output format: text or json")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log HTTP requests and other debug output to stderr")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
