// Package discgo mirrors fired alarms to a Discord channel.
package discgo

import (
	"context"
	"fmt"
	"time"

	"glucoclock/glucoclock/defs"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"
)

const TimeFormat = "2006-01-02 03:04 PM"

type Messager interface {
	SendMessageComplex(channelID discord.ChannelID, data api.SendMessageData) (*discord.Message, error)
}

type Discord struct {
	Messager Messager
	Logger   *zap.Logger
	Location *time.Location

	channel discord.ChannelID
}

func New(token, channelID string, logger *zap.Logger, loc *time.Location) (*Discord, error) {
	sf, err := discord.ParseSnowflake(channelID)
	if err != nil {
		return nil, fmt.Errorf("invalid channel id %q: %w", channelID, err)
	}

	return &Discord{
		Messager: api.NewClient("Bot " + token),
		Logger:   logger,
		Location: loc,
		channel:  discord.ChannelID(sf),
	}, nil
}

// Notify posts alert to the alerts channel, mentioning everyone.
func (d *Discord) Notify(ctx context.Context, alert defs.Alert) error {
	m := d.Messager
	if c, ok := m.(*api.Client); ok {
		m = c.WithContext(ctx)
	}

	msg, err := m.SendMessageComplex(d.channel, alertMessage(alert, d.Location))
	if err != nil {
		return fmt.Errorf("unable to send alert: %w", err)
	}

	d.Logger.Debug("sent alert",
		zap.String("id", alert.ID),
		zap.Any("message id", msg.ID),
	)
	return nil
}

func alertMessage(alert defs.Alert, loc *time.Location) api.SendMessageData {
	t := alert.Time
	if loc != nil {
		t = t.In(loc)
	}

	embed := discord.Embed{
		Fields: []discord.EmbedField{
			{
				Name:  "⚠️ " + alert.Label,
				Value: alert.Reason,
			},
		},
		Footer:    &discord.EmbedFooter{Text: t.Format(TimeFormat)},
		Timestamp: discord.NewTimestamp(alert.Time),
	}

	return api.SendMessageData{
		Content: "@everyone",
		Embeds:  []discord.Embed{embed},
		AllowedMentions: &api.AllowedMentions{
			Parse: []api.AllowedMentionType{api.AllowEveryoneMention},
		},
	}
}
