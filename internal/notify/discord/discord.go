// Package discord implements the notify Adapter for Discord via the REST API.
package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/goalpost/goalpost/internal/notify"
)

// severityColors maps event severities to embed colors.
var severityColors = map[string]int{
	notify.SeverityInfo:    0x439fe0,
	notify.SeveritySuccess: 0x36a64f,
	notify.SeverityWarning: 0xdaa038,
}

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Adapter posts events to a Discord channel as embeds.
type Adapter struct {
	sess      session
	channelID string
}

// New creates a Discord adapter for the given bot token and channel.
func New(botToken, channelID string) (*Adapter, error) {
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Adapter{sess: sess, channelID: channelID}, nil
}

// Name implements notify.Adapter.
func (a *Adapter) Name() string { return "discord" }

// Send implements notify.Adapter.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	embed := &discordgo.MessageEmbed{
		Title:       ev.Title,
		Description: ev.Body,
		Color:       severityColors[ev.Severity],
	}
	for _, f := range ev.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	if _, err := a.sess.ChannelMessageSendEmbed(a.channelID, embed, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send embed: %w", err)
	}
	return nil
}
