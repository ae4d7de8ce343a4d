package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/anyaat/Atlas/internal/domain/lifecycle"
	"github.com/anyaat/Atlas/internal/ports/output"
	pkgdiscord "github.com/anyaat/Atlas/pkg/discord"
)

var _ output.Notifier = (*Notifier)(nil)

// messageSender is the part of *discordgo.Session the notifier uses.
type messageSender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Notifier posts lifecycle notices to a moderation channel, mentioning the
// recipients.
type Notifier struct {
	sender    messageSender
	channelID string
	tr        output.T
	locale    string
	clock     output.Clock
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewNotifier builds a Notifier posting at most perMinute messages per minute
// (unlimited when perMinute <= 0).
func NewNotifier(sender messageSender, channelID string, tr output.T, locale string, clock output.Clock, perMinute int, log zerolog.Logger) *Notifier {
	lim := rate.NewLimiter(rate.Inf, 1)
	if perMinute > 0 {
		lim = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	}
	return &Notifier{
		sender:    sender,
		channelID: channelID,
		tr:        tr,
		locale:    locale,
		clock:     clock,
		limiter:   lim,
		log:       log.With().Str("component", "discord_notifier").Logger(),
	}
}

func (n *Notifier) Notify(ctx context.Context, notice lifecycle.Notice) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord notify: %w", err)
	}
	msg := &discordgo.MessageSend{
		Content: pkgdiscord.Mentions(notice.Recipients),
		Embeds:  []*discordgo.MessageEmbed{pkgdiscord.BuildNoticeEmbed(n.tr, n.locale, notice, n.clock.Now())},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
	if _, err := n.sender.ChannelMessageSendComplex(n.channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord notify listing %d: %w", notice.ListingID, err)
	}
	n.log.Debug().Int64("listing_id", notice.ListingID).Str("reason", string(notice.Reason)).
		Int("recipients", len(notice.Recipients)).Msg("notice posted")
	return nil
}
