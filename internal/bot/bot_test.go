package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letsssgooo/dailyquiz/internal/client"
	"github.com/letsssgooo/dailyquiz/internal/quiz"
	"github.com/letsssgooo/dailyquiz/internal/storage"
	"github.com/letsssgooo/dailyquiz/internal/storage/storagetest"
)

type sentMessage struct {
	chatID int64
	text   string
	opts   *client.SendOptions
}

type fakeSender struct {
	mu       sync.Mutex
	sent     []sentMessage
	commands []client.BotCommand
}

func (s *fakeSender) Commands(_ context.Context, commands []client.BotCommand) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = commands
	return nil
}

func (s *fakeSender) Message(_ context.Context, chatID int64, text string, opts *client.SendOptions) (*client.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentMessage{chatID: chatID, text: text, opts: opts})
	return &client.Message{Text: text}, nil
}

func (s *fakeSender) last(t *testing.T) sentMessage {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.sent)
	return s.sent[len(s.sent)-1]
}

// fakeFetcher отдает заранее заданные пачки, затем отменяет контекст.
type fakeFetcher struct {
	batches [][]client.Update
	errs    []error
	cancel  context.CancelFunc
}

func (f *fakeFetcher) GetUpdates(context.Context, int) ([]client.Update, error) {
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	if len(f.batches) == 0 {
		f.cancel()
		return nil, context.Canceled
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func command(updateID int, userID int64, text string) client.Update {
	return client.Update{
		UpdateID: updateID,
		Message: &client.Message{
			MessageID: updateID,
			From:      &client.User{ID: userID},
			Chat:      &client.Chat{ID: userID},
			Text:      text,
		},
	}
}

func newTestBot(t *testing.T, webApp string) (*Bot, *fakeSender, *quiz.Service) {
	t.Helper()

	ctx := context.Background()
	st := storage.NewMemoryStorage()
	require.NoError(t, st.AddQuestion(ctx, storagetest.Question("a", 0)))
	require.NoError(t, st.AddQuestion(ctx, storagetest.Question("b", time.Hour)))

	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := quiz.NewService(st,
		quiz.WithClock(func() time.Time { return now }),
		quiz.WithLocation(time.UTC),
		quiz.WithLogger(log),
	)

	s := &fakeSender{}
	b := NewBot(nil, s, svc, webApp, log)

	return b, s, svc
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		message string
		want    string
		args    []string
	}{
		{"/start", "start", []string{}},
		{"/Stats@daily_quiz_bot", "stats", []string{}},
		{"  /start ref_42 ", "start", []string{"ref_42"}},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			name, args, err := ParseCommand(tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
			assert.Equal(t, tt.args, args)
		})
	}

	for _, message := range []string{"", "hello", "/", "/@bot"} {
		_, _, err := ParseCommand(message)
		assert.ErrorIs(t, err, ErrValidation, message)
	}
}

func TestHandleUpdate_Start(t *testing.T) {
	ctx := context.Background()
	b, s, _ := newTestBot(t, "https://example.com/app")

	require.NoError(t, b.HandleUpdate(ctx, command(1, 7, "/start")))

	msg := s.last(t)
	assert.Equal(t, int64(7), msg.chatID)
	assert.Equal(t, msgStart, msg.text)
	require.NotNil(t, msg.opts)
	button := msg.opts.ReplyMarkup.InlineKeyboard[0][0]
	require.NotNil(t, button.WebApp)
	assert.Equal(t, "https://example.com/app", button.WebApp.URL)
}

func TestHandleUpdate_StartWithoutWebApp(t *testing.T) {
	b, s, _ := newTestBot(t, "")

	require.NoError(t, b.HandleUpdate(context.Background(), command(1, 7, "/start")))
	assert.Nil(t, s.last(t).opts)
}

func TestHandleUpdate_TodayAndStats(t *testing.T) {
	ctx := context.Background()
	b, s, svc := newTestBot(t, "https://example.com/app")

	require.NoError(t, b.HandleUpdate(ctx, command(1, 7, "/today")))
	assert.Equal(t, msgTodayOpen, s.last(t).text)

	_, err := svc.Answer(ctx, 7, "a", 1)
	require.NoError(t, err)

	require.NoError(t, b.HandleUpdate(ctx, command(2, 7, "/today")))
	assert.Equal(t, msgTodayDone, s.last(t).text)

	require.NoError(t, b.HandleUpdate(ctx, command(3, 7, "/stats")))
	text := s.last(t).text
	assert.Contains(t, text, "Серия: 1 из 5")
	assert.Contains(t, text, "Всего очков: 10")
	assert.Contains(t, text, "2024-05-01")
}

func TestHandleUpdate_Other(t *testing.T) {
	ctx := context.Background()
	b, s, _ := newTestBot(t, "")

	require.NoError(t, b.HandleUpdate(ctx, command(1, 7, "hello")))
	assert.Equal(t, msgHelp, s.last(t).text)

	require.NoError(t, b.HandleUpdate(ctx, command(2, 7, "/dance")))
	assert.Equal(t, msgUnknownCommand, s.last(t).text)

	require.NoError(t, b.HandleUpdate(ctx, client.Update{UpdateID: 3}))
	assert.Len(t, s.sent, 2)
}

type failingStats struct{}

func (failingStats) Stats(context.Context, int64) (*quiz.Stats, error) {
	return nil, quiz.ErrBackendUnavailable
}

func TestHandleUpdate_ServiceFailure(t *testing.T) {
	s := &fakeSender{}
	b := NewBot(nil, s, failingStats{}, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := b.HandleUpdate(context.Background(), command(1, 7, "/stats"))
	assert.ErrorIs(t, err, quiz.ErrBackendUnavailable)
	assert.Equal(t, msgUnavailable, s.last(t).text)
}

func TestRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b, s, _ := newTestBot(t, "")
	b.retryDelay = time.Millisecond
	b.fetcher = &fakeFetcher{
		errs: []error{errors.New("network down")},
		batches: [][]client.Update{
			{command(1, 7, "/start"), command(2, 8, "/help")},
			{command(3, 9, "/today")},
		},
		cancel: cancel,
	}

	require.NoError(t, b.Run(ctx))

	require.Len(t, s.sent, 3)
	assert.Equal(t, menuCommands, s.commands)
	assert.Equal(t, int64(7), s.sent[0].chatID)
	assert.Equal(t, int64(8), s.sent[1].chatID)
	assert.Equal(t, msgTodayOpen, s.sent[2].text)
}

func TestRetryDelayFor(t *testing.T) {
	b, _, _ := newTestBot(t, "")
	b.retryDelay = time.Second

	assert.Equal(t, time.Second, b.retryDelayFor(errors.New("network down")))
	assert.Equal(t, time.Second, b.retryDelayFor(&client.APIError{Code: 502}))

	limited := fmt.Errorf("failed to fetch updates: %w", &client.APIError{Code: 429, RetryAfter: 9 * time.Second})
	assert.Equal(t, 9*time.Second, b.retryDelayFor(limited))
}
