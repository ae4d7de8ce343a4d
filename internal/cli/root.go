package cli

import (
	"fmt"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/anyaat/Atlas/internal/infrastructure/clock"
	"github.com/anyaat/Atlas/internal/ports/output"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "ics"
	Now     string // RFC 3339 instant replacing the wall clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "ics"}

// NewRootCommand creates the root command of the atlas CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "atlas",
		Short: "Atlas - listing lifecycle engine",
		Long:  "Keeps recurring events and venue listings fresh: computes occurrences and moves stale listings through review, expiry and archival.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if _, err := opts.clock(); err != nil {
				return err
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|ics)")
	cmd.PersistentFlags().StringVar(&opts.Now, "now", "", "evaluate at this RFC 3339 instant instead of the current time")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewOccurrencesCommand(opts))
	cmd.AddCommand(NewListingCommand(opts))

	return cmd
}

func (o *RootOptions) clock() (output.Clock, error) {
	if o.Now == "" {
		return clock.System{}, nil
	}
	at, err := time.Parse(time.RFC3339, o.Now)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --now", err)
	}
	return clock.NewManual(at), nil
}

func (o *RootOptions) requireFormat(allowed ...string) error {
	if !slices.Contains(allowed, o.Format) {
		return NewExitError(ExitCommandError, fmt.Sprintf("format %q is not supported here, use one of %v", o.Format, allowed))
	}
	return nil
}
