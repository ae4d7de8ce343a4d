package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

const (
	commandListing = "listing"
	subShow        = "show"
	subReverify    = "reverify"
	optionID       = "id"
)

func listingCommand() *discordgo.ApplicationCommand {
	idOption := []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        optionID,
		Description: "Listing id",
		Required:    true,
	}}
	return &discordgo.ApplicationCommand{
		Name:        commandListing,
		Description: "Inspect or confirm a listing",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subShow,
				Description: "Show the publication status of a listing",
				Options:     idOption,
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        subReverify,
				Description: "Confirm a listing is still accurate",
				Options:     idOption,
			},
		},
	}
}

// HandleCommand answers a /listing interaction.
func (h *Handler) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	var id int64
	for _, o := range sub.Options {
		if o.Name == optionID {
			id = o.IntValue()
		}
	}
	respondEphemeral(s, i.Interaction, h.Reply(context.Background(), interactionLocale(i), sub.Name, id))
}
