// Package cli implements the clok command line.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"clok/internal/domain"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	User       string
	Format     string // "text" | "json"

	clock domain.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the clok CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clok",
		Short: "clok - clock in, clock out, count the hours",
		Long: `clok records work sessions per job and sums them by day, ISO week and month.

The same store backs the command line and the HTTP API started with "clok serve".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default is the user config dir)")
	cmd.PersistentFlags().StringVarP(&opts.User, "user", "u", "", "user to act as (overrides CLOK_USER)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newUserCommand(opts))
	cmd.AddCommand(newJobCommand(opts))
	cmd.AddCommand(newInCommand(opts))
	cmd.AddCommand(newOutCommand(opts))
	cmd.AddCommand(newSessionCommand(opts))
	cmd.AddCommand(newJournalCommand(opts))
	cmd.AddCommand(newStatusCommand(opts))
	cmd.AddCommand(newHoursCommand(opts))
	cmd.AddCommand(newRangeCommand(opts))
	cmd.AddCommand(newDailyCommand(opts))
	cmd.AddCommand(newLogCommand(opts))
	cmd.AddCommand(newExportCommand(opts))

	return cmd
}
