package discgo

import (
	"context"
	"errors"
	"testing"
	"time"

	"glucoclock/glucoclock/defs"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeMessager struct {
	channels map[discord.ChannelID][]api.SendMessageData
	err      error
}

func (m *fakeMessager) SendMessageComplex(channelID discord.ChannelID, data api.SendMessageData) (*discord.Message, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.channels[channelID] = append(m.channels[channelID], data)
	return &discord.Message{ID: discord.MessageID(len(m.channels[channelID]))}, nil
}

func TestNotify(t *testing.T) {
	d, err := New("token", "1234567890", zap.NewNop(), time.UTC)
	require.NoError(t, err)

	msger := &fakeMessager{channels: make(map[discord.ChannelID][]api.SendMessageData)}
	d.Messager = msger

	at := time.Date(2024, time.May, 1, 23, 5, 0, 0, time.UTC)
	alert := defs.NewAlert(defs.LowAlarm, "current value: 3.10 ≤ 3.50", 3.1, at)
	require.NoError(t, d.Notify(context.Background(), alert))

	sent := msger.channels[discord.ChannelID(1234567890)]
	require.Len(t, sent, 1)
	assert.Equal(t, "@everyone", sent[0].Content)
	require.Len(t, sent[0].Embeds, 1)
	embed := sent[0].Embeds[0]
	assert.Equal(t, "⚠️ Low Glucose", embed.Fields[0].Name)
	assert.Equal(t, "current value: 3.10 ≤ 3.50", embed.Fields[0].Value)
	assert.Equal(t, "2024-05-01 11:05 PM", embed.Footer.Text)
	assert.Equal(t, []api.AllowedMentionType{api.AllowEveryoneMention}, sent[0].AllowedMentions.Parse)
}

func TestNotifyError(t *testing.T) {
	d, err := New("token", "42", zap.NewNop(), nil)
	require.NoError(t, err)
	d.Messager = &fakeMessager{err: errors.New("rate limited")}

	assert.Error(t, d.Notify(context.Background(), defs.NewAlert(defs.HighAlarm, "", 12, time.Now())))
}

func TestNewInvalidChannel(t *testing.T) {
	_, err := New("token", "alerts", zap.NewNop(), nil)
	assert.Error(t, err)
}
