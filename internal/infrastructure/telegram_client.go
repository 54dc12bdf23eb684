package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg_miniapp/internal/entities"
)

// TelegramConfig configures the bot connection.
type TelegramConfig struct {
	Token       string
	APIEndpoint string // format string taking token and method, see tgbotapi.APIEndpoint
	PollTimeout int    // seconds
	SendRate    float64
	SendBurst   int
	HTTPClient  *http.Client
}

// TelegramClient sends replies and long-polls updates for one bot.
type TelegramClient struct {
	Bot         *tgbotapi.BotAPI
	transport   *boundClient
	throttle    *SendThrottle
	logger      *slog.Logger
	pollTimeout int
	retryDelay  time.Duration
}

// NewTelegramClient connects to the Bot API (getMe) and fails on a bad token.
func NewTelegramClient(cfg TelegramConfig, logger *slog.Logger) (*TelegramClient, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	transport := &boundClient{client: httpClient}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, transport)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	var throttle *SendThrottle
	if cfg.SendRate > 0 && cfg.SendBurst > 0 {
		throttle = NewSendThrottle(cfg.SendRate, cfg.SendBurst)
	}

	return &TelegramClient{
		Bot:         bot,
		transport:   transport,
		throttle:    throttle,
		logger:      logger.With("component", "telegram", "bot", bot.Self.UserName),
		pollTimeout: cfg.PollTimeout,
		retryDelay:  3 * time.Second,
	}, nil
}

// ActiveChats reports how many chats hold a send limiter, or 0 without a
// throttle.
func (t *TelegramClient) ActiveChats() int {
	if t.throttle == nil {
		return 0
	}
	return t.throttle.ActiveChats()
}

// SendReply sends reply to chatID. A reply with a button goes out with an
// inline keyboard whose button opens the mini-app.
func (t *TelegramClient) SendReply(ctx context.Context, chatID int64, reply entities.Reply) error {
	if t.throttle != nil {
		if err := t.throttle.Wait(ctx, chatID); err != nil {
			return fmt.Errorf("send throttle: %w", err)
		}
	}

	if reply.Button == nil {
		if _, err := t.Bot.Send(tgbotapi.NewMessage(chatID, reply.Text)); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
		return nil
	}

	// The library keyboard type has no web_app field, so the request is built by hand.
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params["text"] = reply.Text
	keyboard := CreateWebAppKeyboard(reply.Button.Text, reply.Button.WebAppURL)
	if err := params.AddInterface("reply_markup", keyboard); err != nil {
		return fmt.Errorf("encode keyboard: %w", err)
	}
	if _, err := t.Bot.MakeRequest("sendMessage", params); err != nil {
		return fmt.Errorf("send message with keyboard: %w", err)
	}
	return nil
}

// Poll long-polls getUpdates and calls handle for every update, one at a
// time and in arrival order, until ctx is cancelled. A failed poll is logged
// and retried after a short delay; a panicking handler is logged and the
// update skipped. Cancelling ctx also aborts the long poll in flight.
func (t *TelegramClient) Poll(ctx context.Context, handle func(context.Context, Update)) error {
	t.transport.bind(ctx)
	defer t.transport.bind(nil)

	offset := 0
	t.logger.Info("polling started")

	for {
		if ctx.Err() != nil {
			t.logger.Info("polling stopped")
			return nil
		}

		updates, err := t.fetchUpdates(offset)
		if err != nil {
			if ctx.Err() != nil {
				t.logger.Info("polling stopped")
				return nil
			}
			t.logger.Error("get updates failed", "error", err)
			select {
			case <-ctx.Done():
				t.logger.Info("polling stopped")
				return nil
			case <-time.After(t.retryDelay):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID < offset {
				continue
			}
			offset = u.UpdateID + 1
			t.handleSafely(ctx, handle, u)
		}
	}
}

func (t *TelegramClient) fetchUpdates(offset int) ([]Update, error) {
	cfg := tgbotapi.NewUpdate(offset)
	cfg.Timeout = t.pollTimeout

	resp, err := t.Bot.Request(cfg)
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(resp.Result, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

func (t *TelegramClient) handleSafely(ctx context.Context, handle func(context.Context, Update), u Update) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("update handler panicked", "update_id", u.UpdateID, "panic", r)
		}
	}()
	handle(ctx, u)
}

// boundClient attaches the poll loop context to every Bot API request;
// tgbotapi itself takes no context.
type boundClient struct {
	client *http.Client
	mu     sync.RWMutex
	ctx    context.Context
}

func (b *boundClient) Do(req *http.Request) (*http.Response, error) {
	b.mu.RLock()
	ctx := b.ctx
	b.mu.RUnlock()
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	return b.client.Do(req)
}

func (b *boundClient) bind(ctx context.Context) {
	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()
}
