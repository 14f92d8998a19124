package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

// TelegramOptions configures a TelegramClient.
type TelegramOptions struct {
	BotToken string
	// ChatID is either a numeric chat id or a public channel username.
	ChatID string
	// APIEndpoint is a bot API format string such as
	// "https://api.telegram.org/bot%s/%s".
	APIEndpoint string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// TelegramClient sends the post as a message to a chat or channel.
type TelegramClient struct {
	bot     *tgbotapi.BotAPI
	chatID  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewTelegramClient creates a new Telegram publisher. The bot is built
// without the getMe round trip, so no request is made until Publish.
func NewTelegramClient(opts TelegramOptions) *TelegramClient {
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	bot := &tgbotapi.BotAPI{
		Token:  opts.BotToken,
		Buffer: 100,
		Client: &http.Client{Timeout: opts.Timeout},
	}
	bot.SetAPIEndpoint(opts.APIEndpoint)

	return &TelegramClient{
		bot:     bot,
		chatID:  strings.TrimSpace(opts.ChatID),
		timeout: opts.Timeout,
		logger:  logging.Section(opts.Logger, logging.SectionPublisher),
	}
}

func (c *TelegramClient) Name() string {
	return "telegram"
}

// contextClient binds every bot API request to the publish context.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

func (c *TelegramClient) Publish(ctx context.Context, text string) (*Result, error) {
	// Shallow copy so concurrent runs each get their own context.
	bot := *c.bot
	bot.Client = contextClient{ctx: ctx, client: &http.Client{Timeout: c.timeout}}

	var msg tgbotapi.MessageConfig
	if id, convErr := strconv.ParseInt(c.chatID, 10, 64); convErr == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		username := c.chatID
		if !strings.HasPrefix(username, "@") {
			username = "@" + username
		}
		msg = tgbotapi.NewMessageToChannel(username, text)
	}
	msg.DisableWebPagePreview = true

	sent, err := bot.Send(msg)
	if err != nil {
		return nil, c.fail(err)
	}

	id := strconv.Itoa(sent.MessageID)
	c.logger.Info("post published", "post_id", id, "chat", c.chatID)
	return &Result{
		ID:       id,
		Text:     sent.Text,
		Provider: c.Name(),
	}, nil
}

func (c *TelegramClient) fail(err error) error {
	perr := &ProviderError{Provider: c.Name()}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		perr.StatusCode = apiErr.Code
		perr.Errors = []ErrorDetail{{Code: apiErr.Code, Message: apiErr.Message}}
		if apiErr.RetryAfter > 0 {
			perr.RateLimit.Reset = time.Now().Add(time.Duration(apiErr.RetryAfter) * time.Second).UTC()
		}
	} else {
		perr.Err = c.redact(err)
	}

	c.logger.Error("post attempt failed", perr.LogAttrs()...)
	return fmt.Errorf("%w: %w", ErrPublishFailed, perr)
}

// redact removes the bot token, which the bot API puts in the request path,
// from transport errors.
func (c *TelegramClient) redact(err error) error {
	token := c.bot.Token
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &url.Error{
			Op:  urlErr.Op,
			URL: strings.ReplaceAll(urlErr.URL, token, "<redacted>"),
			Err: urlErr.Err,
		}
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "<redacted>"))
}
