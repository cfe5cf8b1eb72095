// Package cli implements the zte command line tool for inspecting, editing,
// evaluating and validating trigger expressions.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"zte.szuro.net/internal/logger"
)

// NewRootCmd returns the zte command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "zte",
		Short:        "Zabbix trigger expression toolkit",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logger.SetLogLevel(slog.LevelDebug)
			} else {
				logger.SetLogLevel(slog.LevelWarn)
			}
		},
	}
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")

	root.AddCommand(NewTokensCmd())
	root.AddCommand(NewTreeCmd())
	root.AddCommand(NewOutlineCmd())
	root.AddCommand(NewEditCmd())
	root.AddCommand(NewEvalCmd())
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewInfoCmd())
	return root
}
