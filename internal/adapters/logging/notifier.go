// Package logging provides a notifier that records notices in the log. It
// stands in for a chat notifier when none is configured.
package logging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/anyaat/Atlas/internal/domain/lifecycle"
	"github.com/anyaat/Atlas/internal/ports/output"
)

var _ output.Notifier = (*Notifier)(nil)

type Notifier struct {
	log zerolog.Logger
}

func NewNotifier(log zerolog.Logger) *Notifier {
	return &Notifier{log: log.With().Str("component", "notifier").Logger()}
}

func (n *Notifier) Notify(_ context.Context, notice lifecycle.Notice) error {
	n.log.Info().
		Int64("listing_id", notice.ListingID).
		Str("title", notice.Title).
		Str("from", string(notice.From)).
		Str("to", string(notice.To)).
		Str("reason", string(notice.Reason)).
		Ints64("recipients", notice.Recipients).
		Msg("lifecycle notice")
	return nil
}
