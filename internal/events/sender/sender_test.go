package sender

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/dailyquiz/internal/client"
)

type recordingClient struct {
	chatID   int64
	text     string
	commands []client.BotCommand
	err      error
}

func (c *recordingClient) SendMessage(_ context.Context, chatID int64, text string, _ *client.SendOptions) (*client.Message, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.chatID, c.text = chatID, text
	return &client.Message{Text: text, Chat: &client.Chat{ID: chatID}}, nil
}

func (c *recordingClient) GetUpdates(context.Context, int, int) ([]client.Update, error) {
	return nil, nil
}

func (c *recordingClient) SetMyCommands(_ context.Context, commands []client.BotCommand) error {
	if c.err != nil {
		return c.err
	}
	c.commands = commands
	return nil
}

func TestTelegramSender_Message(t *testing.T) {
	rc := &recordingClient{}
	s := NewTelegramSender(rc)

	msg, err := s.Message(context.Background(), 42, "привет", nil)
	require.NoError(t, err)
	assert.Equal(t, "привет", msg.Text)
	assert.Equal(t, int64(42), rc.chatID)
}

func TestTelegramSender_Errors(t *testing.T) {
	rc := &recordingClient{err: errors.New("network down")}
	s := NewTelegramSender(rc)

	_, err := s.Message(context.Background(), 42, "привет", nil)
	assert.ErrorIs(t, err, rc.err)
	assert.Contains(t, err.Error(), "chat 42")

	err = s.Commands(context.Background(), []client.BotCommand{{Command: "start"}})
	assert.ErrorIs(t, err, rc.err)
}

func TestTelegramSender_Commands(t *testing.T) {
	rc := &recordingClient{}
	s := NewTelegramSender(rc)

	require.NoError(t, s.Commands(context.Background(), []client.BotCommand{{Command: "start", Description: "открыть"}}))
	assert.Equal(t, []client.BotCommand{{Command: "start", Description: "открыть"}}, rc.commands)
}
