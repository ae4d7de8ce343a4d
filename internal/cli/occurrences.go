package cli

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/anyaat/Atlas/internal/adapters/ics"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

// OccurrencesOptions holds flags for the occurrences command.
type OccurrencesOptions struct {
	*RootOptions
	Repeat    string
	StartDate string
	StartTime string
	EndDate   string
	EndTime   string
	TimeZone  string
	Title     string
	Limit     int
}

func NewOccurrencesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OccurrencesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "occurrences",
		Short: "List the next occurrences of a recurrence rule",
		Long: `List the next occurrences of a recurrence rule after now (or --now).

Examples:
  atlas occurrences --repeat wednesday --start-date 2024-01-03 --start-time 19:00 --tz Europe/Paris
  atlas occurrences --repeat day --start-date 2024-05-01 --start-time 07:30 --end-date 2024-05-05 --limit 3
  atlas occurrences --repeat sunday --start-date 2024-01-07 --start-time 10:00 --end-time 12:00 --format ics`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOccurrences(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Repeat, "repeat", "", "\"day\" or a weekday name (required)")
	_ = cmd.MarkFlagRequired("repeat")
	cmd.Flags().StringVar(&opts.StartDate, "start-date", "", "first day, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("start-date")
	cmd.Flags().StringVar(&opts.StartTime, "start-time", "", "start time of day, HH:MM (required)")
	_ = cmd.MarkFlagRequired("start-time")
	cmd.Flags().StringVar(&opts.EndDate, "end-date", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.EndTime, "end-time", "", "end time of day, HH:MM")
	cmd.Flags().StringVar(&opts.TimeZone, "tz", "UTC", "IANA time zone of the venue")
	cmd.Flags().StringVar(&opts.Title, "title", "Occurrence", "event title in the ics output")
	cmd.Flags().IntVar(&opts.Limit, "limit", recurrence.DefaultLimit, "maximum number of occurrences")

	return cmd
}

func (o *OccurrencesOptions) rule() (recurrence.Rule, error) {
	kind, wd, err := recurrence.ParseKind(o.Repeat)
	if err != nil {
		return recurrence.Rule{}, err
	}
	r := recurrence.Rule{Kind: kind, Weekday: wd, TimeZone: o.TimeZone}
	if r.StartDate, err = civil.ParseDate(o.StartDate); err != nil {
		return recurrence.Rule{}, fmt.Errorf("--start-date: %w", err)
	}
	if r.StartTime, err = recurrence.ParseTimeOfDay(o.StartTime); err != nil {
		return recurrence.Rule{}, err
	}
	if o.EndDate != "" {
		d, err := civil.ParseDate(o.EndDate)
		if err != nil {
			return recurrence.Rule{}, fmt.Errorf("--end-date: %w", err)
		}
		r.EndDate = &d
	}
	if o.EndTime != "" {
		t, err := recurrence.ParseTimeOfDay(o.EndTime)
		if err != nil {
			return recurrence.Rule{}, err
		}
		r.EndTime = &t
	}
	return r, r.Validate()
}

func runOccurrences(opts *OccurrencesOptions, cmd *cobra.Command) error {
	clk, err := opts.clock()
	if err != nil {
		return err
	}
	rule, err := opts.rule()
	if err != nil {
		return WrapExitError(ExitFailure, "invalid rule", err)
	}
	now := clk.Now()
	w := cmd.OutOrStdout()

	if opts.Format == "ics" {
		feed, err := ics.BuildFeed([]entities.Listing{{Title: opts.Title, Recurrence: &rule}}, now, opts.Limit)
		if err != nil {
			return WrapExitError(ExitFailure, "build feed", err)
		}
		_, err = fmt.Fprint(w, feed)
		return err
	}

	occ, err := recurrence.Occurrences(rule, now, opts.Limit)
	if err != nil {
		return WrapExitError(ExitFailure, "compute occurrences", err)
	}
	if opts.Format == "json" {
		type view struct {
			Start string `json:"start"`
			End   string `json:"end,omitempty"`
		}
		out := make([]view, len(occ))
		for i, o := range occ {
			out[i].Start = o.Start.Format(time.RFC3339)
			if !o.End.IsZero() {
				out[i].End = o.End.Format(time.RFC3339)
			}
		}
		return writeJSON(w, out)
	}
	for _, o := range occ {
		if o.End.IsZero() {
			fmt.Fprintln(w, o.Start.Format("Mon 2006-01-02 15:04 MST"))
			continue
		}
		fmt.Fprintf(w, "%s - %s\n", o.Start.Format("Mon 2006-01-02 15:04 MST"), o.End.Format("15:04"))
	}
	return nil
}
