package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/anyaat/Atlas/internal/adapters/ics"
	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/domain/recurrence"
)

// listingView is the printable form of a listing.
type listingView struct {
	ID               int64             `json:"id"`
	Kind             string            `json:"kind"`
	Title            string            `json:"title"`
	ManagerID        int64             `json:"manager_id"`
	Recurrence       string            `json:"recurrence,omitempty"`
	Status           string            `json:"status"`
	UpdatedAt        string            `json:"updated_at"`
	ShouldReassessAt string            `json:"should_reassess_at,omitempty"`
	Reached          map[string]string `json:"reached,omitempty"`
	Version          int64             `json:"version"`
}

func viewOf(l *entities.Listing) listingView {
	v := listingView{
		ID:        l.ID,
		Kind:      string(l.Kind),
		Title:     l.Title,
		ManagerID: l.ManagerID,
		Status:    string(l.Status),
		UpdatedAt: l.UpdatedAt.Format(time.RFC3339),
		Version:   l.Version,
		Reached:   map[string]string{},
	}
	if l.Recurring() {
		v.Recurrence = fmt.Sprintf("%s at %s (%s)", l.Recurrence.Label(),
			recurrence.FormatTimeOfDay(l.Recurrence.StartTime), l.Recurrence.TimeZone)
	}
	if !l.ShouldReassessAt.IsZero() {
		v.ShouldReassessAt = l.ShouldReassessAt.Format(time.RFC3339)
	}
	for _, s := range append(entities.Ladder[:], entities.StatusFinished) {
		if at := l.Reached(s); !at.IsZero() {
			v.Reached[string(s)] = at.Format(time.RFC3339)
		}
	}
	return v
}

func printListing(w io.Writer, format string, l *entities.Listing) error {
	v := viewOf(l)
	if format == "json" {
		return writeJSON(w, v)
	}
	fmt.Fprintf(w, "#%d %s (%s, manager %d)\n", v.ID, v.Title, v.Kind, v.ManagerID)
	if v.Recurrence != "" {
		fmt.Fprintf(w, "  repeats:  %s\n", v.Recurrence)
	}
	fmt.Fprintf(w, "  status:   %s since %s\n", v.Status, v.UpdatedAt)
	if v.ShouldReassessAt != "" {
		fmt.Fprintf(w, "  reassess: %s\n", v.ShouldReassessAt)
	}
	return nil
}

func NewListingCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listing",
		Short: "Inspect and confirm listings",
	}
	cmd.AddCommand(newListingShowCommand(rootOpts))
	cmd.AddCommand(newListingReverifyCommand(rootOpts))
	cmd.AddCommand(newListingVisibleCommand(rootOpts))
	return cmd
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, NewExitError(ExitCommandError, fmt.Sprintf("invalid listing id %q", arg))
	}
	return id, nil
}

func newListingShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show a listing and its lifecycle",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.requireFormat("text", "json"); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.service.GetListing(cmd.Context(), id)
			if err != nil {
				return a.userError(err)
			}
			return printListing(cmd.OutOrStdout(), rootOpts.Format, l)
		},
	}
}

func newListingReverifyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "reverify <id>",
		Short:         "Confirm a listing is still accurate and reset it to verified",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.requireFormat("text", "json"); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			l, err := a.service.ReverifyListing(cmd.Context(), id)
			if err != nil {
				return a.userError(err)
			}
			return printListing(cmd.OutOrStdout(), rootOpts.Format, l)
		},
	}
}

func newListingVisibleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "visible",
		Short:         "List the listings that may be published now",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.requireFormat("text", "json", "ics"); err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			listings, err := a.service.ListVisible(cmd.Context())
			if err != nil {
				return a.userError(err)
			}
			w := cmd.OutOrStdout()
			switch rootOpts.Format {
			case "ics":
				feed, err := ics.BuildFeed(listings, a.clock.Now(), recurrence.DefaultLimit)
				if err != nil {
					return a.userError(err)
				}
				_, err = fmt.Fprint(w, feed)
				return err
			case "json":
				views := make([]listingView, len(listings))
				for i := range listings {
					views[i] = viewOf(&listings[i])
				}
				return writeJSON(w, views)
			}
			for i := range listings {
				if err := printListing(w, "text", &listings[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
