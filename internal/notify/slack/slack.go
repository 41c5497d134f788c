// Package slack implements the notify Adapter for Slack via the Web API.
package slack

import (
	"context"
	"fmt"

	"github.com/goalpost/goalpost/internal/notify"
	slackapi "github.com/slack-go/slack"
)

// severityColors maps event severities to attachment sidebar colors.
var severityColors = map[string]string{
	notify.SeverityInfo:    "#439fe0",
	notify.SeveritySuccess: "#36a64f",
	notify.SeverityWarning: "#daa038",
}

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Adapter posts events to a Slack channel.
type Adapter struct {
	client    slackClient
	channelID string
}

// New creates a Slack adapter for the given bot token and channel.
func New(botToken, channelID string) *Adapter {
	return &Adapter{
		client:    slackapi.New(botToken),
		channelID: channelID,
	}
}

// Name implements notify.Adapter.
func (a *Adapter) Name() string { return "slack" }

// Send implements notify.Adapter.
func (a *Adapter) Send(ctx context.Context, ev notify.Event) error {
	attachment := slackapi.Attachment{
		Title: ev.Title,
		Text:  ev.Body,
		Color: severityColors[ev.Severity],
	}
	for _, f := range ev.Fields {
		attachment.Fields = append(attachment.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: true,
		})
	}

	_, _, err := a.client.PostMessageContext(ctx, a.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
