package fetcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/dailyquiz/internal/client"
)

type fakeClient struct {
	offsets []int
	batches [][]client.Update
	err     error
}

func (c *fakeClient) SendMessage(context.Context, int64, string, *client.SendOptions) (*client.Message, error) {
	return &client.Message{}, nil
}

func (c *fakeClient) SetMyCommands(context.Context, []client.BotCommand) error {
	return nil
}

func (c *fakeClient) GetUpdates(_ context.Context, offset int, _ int) ([]client.Update, error) {
	c.offsets = append(c.offsets, offset)
	if c.err != nil {
		return nil, c.err
	}
	if len(c.batches) == 0 {
		return nil, nil
	}
	batch := c.batches[0]
	c.batches = c.batches[1:]
	return batch, nil
}

func TestTelegramFetcher_AdvancesOffset(t *testing.T) {
	fc := &fakeClient{batches: [][]client.Update{
		{{UpdateID: 3}, {UpdateID: 4}},
		{},
		{{UpdateID: 9}},
	}}
	f := NewTelegramFetcher(fc)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := f.GetUpdates(ctx, 0)
		require.NoError(t, err)
	}

	assert.Equal(t, []int{0, 5, 5, 10}, fc.offsets)
}

func TestTelegramFetcher_Error(t *testing.T) {
	fc := &fakeClient{err: errors.New("network down")}
	f := NewTelegramFetcher(fc)

	_, err := f.GetUpdates(context.Background(), 0)
	assert.ErrorIs(t, err, fc.err)
}
