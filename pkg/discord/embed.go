package discord

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/anyaat/Atlas/internal/domain/lifecycle"
	"github.com/anyaat/Atlas/internal/ports/output"
)

const (
	colorCreated  = 0x57F287
	colorUrgent   = 0xED4245
	colorFinished = 0x95A5A6
)

func noticeColor(r lifecycle.Reason) int {
	switch r {
	case lifecycle.ReasonUrgentReview:
		return colorUrgent
	case lifecycle.ReasonFinished:
		return colorFinished
	default:
		return colorCreated
	}
}

// Mentions renders manager ids as Discord user mentions.
func Mentions(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("<@%d>", id)
	}
	return strings.Join(parts, " ")
}

// BuildNoticeEmbed renders a lifecycle notice for a channel post.
func BuildNoticeEmbed(tr output.T, locale string, n lifecycle.Notice, at time.Time) *discordgo.MessageEmbed {
	data := map[string]any{"Title": n.Title, "ID": n.ListingID}
	reason := string(n.Reason)
	fields := []*discordgo.MessageEmbedField{
		{Name: tr.T(locale, "field_listing", nil), Value: fmt.Sprintf("#%d", n.ListingID), Inline: true},
		{Name: tr.T(locale, "field_status", nil), Value: tr.T(locale, "status_"+string(n.To), nil), Inline: true},
	}
	if n.From != "" && n.From != n.To {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   tr.T(locale, "field_previous_status", nil),
			Value:  tr.T(locale, "status_"+string(n.From), nil),
			Inline: true,
		})
	}
	return &discordgo.MessageEmbed{
		Title:       tr.T(locale, "notice_"+reason+"_title", data),
		Description: tr.T(locale, "notice_"+reason+"_body", data),
		Color:       noticeColor(n.Reason),
		Fields:      fields,
		Timestamp:   FormatTimestamp(at),
	}
}
