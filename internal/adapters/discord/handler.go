package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/anyaat/Atlas/internal/domain/entities"
	"github.com/anyaat/Atlas/internal/ports/input"
	"github.com/anyaat/Atlas/internal/ports/output"
	pkgdiscord "github.com/anyaat/Atlas/pkg/discord"
)

// Handler handles Discord interactions using use cases.
type Handler struct {
	lifecycle input.LifecycleUseCase
	tr        output.T
	locale    string
	log       zerolog.Logger
}

func NewHandler(lifecycle input.LifecycleUseCase, tr output.T, locale string, log zerolog.Logger) *Handler {
	return &Handler{
		lifecycle: lifecycle,
		tr:        tr,
		locale:    locale,
		log:       log.With().Str("component", "discord_handler").Logger(),
	}
}

// Reply runs a /listing subcommand and returns the message to show.
func (h *Handler) Reply(ctx context.Context, locale, sub string, id int64) string {
	if locale == "" {
		locale = h.locale
	}
	var (
		l   *entities.Listing
		err error
	)
	switch sub {
	case subShow:
		l, err = h.lifecycle.GetListing(ctx, id)
	case subReverify:
		l, err = h.lifecycle.ReverifyListing(ctx, id)
	default:
		return h.tr.T(locale, "error_unknown", nil)
	}
	if err != nil {
		h.log.Warn().Err(err).Str("sub", sub).Int64("listing_id", id).Msg("listing command failed")
		return pkgdiscord.DomainErrorMessage(h.tr, locale, err)
	}
	return h.describe(locale, l)
}

func (h *Handler) describe(locale string, l *entities.Listing) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**#%d %s**\n", l.ID, l.Title)
	fmt.Fprintf(&b, "%s: %s", h.tr.T(locale, "field_status", nil), h.tr.T(locale, "status_"+string(l.Status), nil))
	if !l.ShouldReassessAt.IsZero() {
		fmt.Fprintf(&b, " (%s)", pkgdiscord.RelativeTime(l.ShouldReassessAt))
	}
	return b.String()
}

func interactionLocale(i *discordgo.InteractionCreate) string {
	loc := string(i.Locale)
	if idx := strings.IndexByte(loc, '-'); idx > 0 {
		loc = loc[:idx]
	}
	return loc
}
