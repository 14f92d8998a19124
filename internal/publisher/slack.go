package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

const defaultSlackAPIURL = "https://slack.com/api/chat.postMessage"

// SlackClient posts the text to a Slack channel
type SlackClient struct {
	botToken   string
	channel    string
	apiURL     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackClient creates a new Slack client
func NewSlackClient(botToken, channel, apiURL string, timeout time.Duration, logger *slog.Logger) *SlackClient {
	if apiURL == "" {
		apiURL = defaultSlackAPIURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SlackClient{
		botToken: botToken,
		channel:  channel,
		apiURL:   apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.Section(logger, logging.SectionPublisher),
	}
}

// ChatPostMessageRequest represents a Slack chat.postMessage request
type ChatPostMessageRequest struct {
	Channel   string `json:"channel"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

func (c *SlackClient) Name() string {
	return "slack"
}

// Publish sends the text with chat.postMessage. The message timestamp is
// Slack's message id and is returned as the post id.
func (c *SlackClient) Publish(ctx context.Context, text string) (*Result, error) {
	req := ChatPostMessageRequest{
		Channel:   c.channel,
		Text:      text,
		Username:  "Headline Poster",
		IconEmoji: ":newspaper:",
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, c.fail(&ProviderError{Provider: c.Name(), Err: fmt.Errorf("marshaling message: %w", err)})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, c.fail(&ProviderError{Provider: c.Name(), Err: fmt.Errorf("creating request: %w", err)})
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.botToken)
	httpReq.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(&ProviderError{Provider: c.Name(), Err: fmt.Errorf("sending request: %w", err)})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		perr := &ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode}
		if retry := resp.Header.Get("Retry-After"); retry != "" {
			if d, err := time.ParseDuration(retry + "s"); err == nil {
				perr.RateLimit.Reset = time.Now().Add(d).UTC()
			}
		}
		return nil, c.fail(perr)
	}

	var slackResp struct {
		OK      bool   `json:"ok"`
		TS      string `json:"ts"`
		Channel string `json:"channel"`
		Error   string `json:"error,omitempty"`
		Message struct {
			Text string `json:"text"`
		} `json:"message"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&slackResp); err != nil {
		return nil, c.fail(&ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)})
	}

	if !slackResp.OK {
		return nil, c.fail(&ProviderError{Provider: c.Name(), StatusCode: resp.StatusCode, Title: "slack API error", Detail: slackResp.Error})
	}

	c.logger.Info("post published", "post_id", slackResp.TS, "channel", slackResp.Channel)
	return &Result{
		ID:       slackResp.TS,
		Text:     slackResp.Message.Text,
		Provider: c.Name(),
	}, nil
}

func (c *SlackClient) fail(perr *ProviderError) error {
	c.logger.Error("post attempt failed", perr.LogAttrs()...)
	return fmt.Errorf("%w: %w", ErrPublishFailed, perr)
}
