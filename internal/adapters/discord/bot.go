package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Bot is the Discord adapter: it owns the gateway session used both for
// notices and for the /listing command.
type Bot struct {
	session *discordgo.Session
	handler *Handler
	log     zerolog.Logger
}

// NewSession creates an unopened bot session.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return s, nil
}

func NewBot(session *discordgo.Session, handler *Handler, log zerolog.Logger) *Bot {
	bot := &Bot{
		session: session,
		handler: handler,
		log:     log.With().Str("component", "discord").Logger(),
	}
	bot.setupHandlers()
	return bot
}

func (b *Bot) setupHandlers() {
	b.session.AddHandler(b.handleInteraction)
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.ApplicationCommandData().Name == commandListing {
		b.handler.HandleCommand(s, i)
	}
}

// Start opens the session, registers the commands and blocks until ctx is
// done.
func (b *Bot) Start(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord open session: %w", err)
	}
	defer b.session.Close()

	if _, err := b.session.ApplicationCommandCreate(b.session.State.User.ID, "", listingCommand()); err != nil {
		b.log.Warn().Err(err).Str("command", commandListing).Msg("command registration failed")
	}

	b.log.Info().Msg("bot online")
	<-ctx.Done()
	return nil
}
