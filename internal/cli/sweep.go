package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// sweepView is the JSON form of a sweep report.
type sweepView struct {
	Started      string `json:"started"`
	TookMillis   int64  `json:"took_ms"`
	Due          int    `json:"due"`
	Evaluated    int    `json:"evaluated"`
	Transitioned int    `json:"transitioned"`
	Skipped      int    `json:"skipped"`
	Failed       int    `json:"failed"`
	Interrupted  bool   `json:"interrupted"`
}

func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate every listing due for reassessment once",
		Long: `Evaluate every listing due for reassessment once and print a report.

Examples:
  atlas sweep
  atlas sweep --now 2024-03-01T00:00:00Z --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.requireFormat("text", "json"); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.sweeper.Run(cmd.Context())
			if err != nil {
				return WrapExitError(ExitCommandError, "sweep", err)
			}
			w := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(w, sweepView{
					Started:      report.Started.Format(time.RFC3339),
					TookMillis:   report.Took.Milliseconds(),
					Due:          report.Due,
					Evaluated:    report.Evaluated,
					Transitioned: report.Transitioned,
					Skipped:      report.Skipped,
					Failed:       report.Failed,
					Interrupted:  report.Interrupted,
				})
			}
			fmt.Fprintf(w, "due %d, evaluated %d, transitioned %d, skipped %d, failed %d (%s)\n",
				report.Due, report.Evaluated, report.Transitioned, report.Skipped, report.Failed, report.Took)
			if report.Interrupted {
				fmt.Fprintln(w, "sweep interrupted; remaining listings stay due")
			}
			if report.Failed > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d listings failed to evaluate", report.Failed))
			}
			return nil
		},
	}
}
