package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

func NewOpenAIClient(opts Options, timeout time.Duration, logger *slog.Logger) *OpenAIClient {
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

	client := openai.NewClient(requestOpts...)
	return &OpenAIClient{
		client:      &client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      logging.Section(logger, logging.SectionSummarizer),
	}
}

func (c *OpenAIClient) Name() string {
	return "openai"
}

func (c *OpenAIClient) GenerateSummary(ctx context.Context, headlines []string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(BuildPrompt(headlines)),
		},
		Temperature: openai.Float(c.temperature),
		MaxTokens:   openai.Int(int64(c.maxTokens)),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			c.logger.Error("openai request failed", "status", apiErr.StatusCode, "model", c.model, "error", apiErr.Message)
		}
		return "", fmt.Errorf("%w: openai API error: %v", ErrGenerationUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in openai response", ErrGenerationUnavailable)
	}

	summary, ok := cleanCompletion(resp.Choices[0].Message.Content)
	if !ok {
		return "", fmt.Errorf("%w: empty openai completion (finish reason %q)", ErrGenerationUnavailable, resp.Choices[0].FinishReason)
	}

	c.logger.Info("summary generated", "provider", c.Name(), "model", c.model, "length", len([]rune(summary)))
	return summary, nil
}
