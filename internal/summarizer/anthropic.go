package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

type AnthropicClient struct {
	client      *anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func NewAnthropicClient(opts Options, timeout time.Duration, logger *slog.Logger) *AnthropicClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	requestOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(opts.BaseURL))
	}

	model := anthropic.Model(opts.Model)
	if model == "" {
		model = anthropic.ModelClaudeHaiku4_5
	}

	client := anthropic.NewClient(requestOpts...)
	return &AnthropicClient{
		client:      &client,
		model:       model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      logging.Section(logger, logging.SectionSummarizer),
	}
}

func (c *AnthropicClient) Name() string {
	return "anthropic"
}

func (c *AnthropicClient) GenerateSummary(ctx context.Context, headlines []string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   int64(c.maxTokens),
		Temperature: anthropic.Float(c.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(headlines))),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			c.logger.Error("anthropic request failed", "status", apiErr.StatusCode, "model", c.model)
		}
		return "", fmt.Errorf("%w: anthropic API error: %v", ErrGenerationUnavailable, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	summary, ok := cleanCompletion(text.String())
	if !ok {
		return "", fmt.Errorf("%w: no text in anthropic response (stop reason %q)", ErrGenerationUnavailable, resp.StopReason)
	}

	c.logger.Info("summary generated", "provider", c.Name(), "model", c.model, "length", len([]rune(summary)))
	return summary, nil
}
