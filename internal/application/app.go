// Package application builds the pipeline from configuration.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/archive"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/news"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/publisher"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/summarizer"
)

// Application holds the pipeline and the resources behind it.
type Application struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Archive  *archive.Archive
	Logger   *slog.Logger
	cleanup  func() error
}

// New validates cfg and creates the components it selects. No network
// request is made.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	source := NewSource(cfg, logger)
	gen := NewSummarizer(cfg, logger)
	pub := NewPublisher(cfg, logger)

	app := &Application{Config: cfg, Logger: logger}

	opts := pipeline.Options{
		MaxLength:    cfg.PostMaxLength,
		LengthPolicy: cfg.LengthPolicy,
		StepTimeout:  stepTimeout(cfg),
		Logger:       logger,
	}

	if cfg.ArchiveBucket != "" {
		bucket, err := archive.NewGCSBucket(ctx, cfg.ArchiveBucket)
		if err != nil {
			// Archiving is optional; a run never fails because of it.
			logger.Warn("run archive disabled", "bucket", cfg.ArchiveBucket, "error", err)
		} else {
			app.Archive = archive.New(bucket, logger)
			app.cleanup = bucket.Close
			opts.Recorder = app.Archive
		}
	}

	app.Pipeline = pipeline.New(source, gen, pub, opts)
	return app, nil
}

// stepTimeout leaves room for the X fallback, which makes two calls.
func stepTimeout(cfg *config.Config) time.Duration {
	if cfg.Publisher == config.PublisherX && cfg.XFallbackEnabled {
		return 2*cfg.HTTPTimeout + time.Second
	}
	return cfg.HTTPTimeout + time.Second
}

// Close cleans up application resources
func (a *Application) Close() error {
	if a.cleanup != nil {
		return a.cleanup()
	}
	return nil
}

// Run executes one run. Configuration problems are reported before any
// component is created.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger, dryRun bool) (*pipeline.Report, error) {
	app, err := New(ctx, cfg, logger)
	if err != nil {
		if logger != nil {
			logger.Error("invalid configuration", "error_kind", pipeline.KindName(err), "error", err)
		}
		return nil, err
	}
	defer app.Close()

	if dryRun {
		return app.Pipeline.Preview(ctx)
	}
	return app.Pipeline.Run(ctx)
}

// NewSource creates the configured headline source. It returns nil for
// config.SourceNone.
func NewSource(cfg *config.Config, logger *slog.Logger) news.Source {
	switch cfg.NewsSource {
	case config.SourceNone:
		return nil
	case config.SourceRSS:
		return news.NewRSSSource(cfg.NewsRSSURL, cfg.NewsPageSize, cfg.HTTPTimeout, logger)
	}
	return news.NewNewsAPIClient(news.NewsAPIOptions{
		APIKey:   cfg.NewsAPIKey,
		BaseURL:  cfg.NewsAPIBaseURL,
		PageSize: cfg.NewsPageSize,
		Category: cfg.NewsCategory,
		Timeout:  cfg.HTTPTimeout,
		Logger:   logger,
	})
}

// TestPostText is published by TestPost.
const TestPostText = "Test post from my bot! ✅"

// TestPost publishes TestPostText through the configured publisher only. It
// checks the posting credentials end to end without fetching headlines or
// calling a model.
func TestPost(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*publisher.Result, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	if err := cfg.ValidatePublisher(); err != nil {
		logger.Error("invalid configuration", "error_kind", pipeline.KindName(err), "error", err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, stepTimeout(cfg))
	defer cancel()

	result, err := NewPublisher(cfg, logger).Publish(ctx, TestPostText)
	if err != nil {
		for _, perr := range publisher.ProviderErrors(err) {
			logger.Error("test post failed", perr.LogAttrs()...)
		}
		return nil, err
	}

	logger.Info("test post published", "post_id", result.ID, "api_version", result.APIVersion, "publisher", result.Provider)
	return result, nil
}

// NewSummarizer creates the configured text-generation provider.
func NewSummarizer(cfg *config.Config, logger *slog.Logger) summarizer.Summarizer {
	opts := summarizer.Options{
		Model:       cfg.Model(),
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
	}

	switch cfg.LLMProvider {
	case config.ProviderGemini:
		opts.APIKey = cfg.GeminiAPIKey
		opts.BaseURL = cfg.GeminiBaseURL
		return summarizer.NewGeminiClient(opts, cfg.HTTPTimeout, logger)
	case config.ProviderAnthropic:
		opts.APIKey = cfg.AnthropicAPIKey
		opts.BaseURL = cfg.AnthropicBaseURL
		return summarizer.NewAnthropicClient(opts, cfg.HTTPTimeout, logger)
	default:
		opts.APIKey = cfg.OpenAIAPIKey
		opts.BaseURL = cfg.OpenAIBaseURL
		return summarizer.NewOpenAIClient(opts, cfg.HTTPTimeout, logger)
	}
}

// NewPublisher creates the configured publisher.
func NewPublisher(cfg *config.Config, logger *slog.Logger) publisher.Publisher {
	switch cfg.Publisher {
	case config.PublisherTelegram:
		return publisher.NewTelegramClient(publisher.TelegramOptions{
			BotToken:    cfg.TelegramBotToken,
			ChatID:      cfg.TelegramChatID,
			APIEndpoint: cfg.TelegramAPIEndpoint,
			Timeout:     cfg.HTTPTimeout,
			Logger:      logger,
		})
	case config.PublisherSlack:
		return publisher.NewSlackClient(cfg.SlackBotToken, cfg.SlackChannel, cfg.SlackAPIURL, cfg.HTTPTimeout, logger)
	default:
		return publisher.NewXClient(publisher.XOptions{
			AppKey:          cfg.TwitterAppKey,
			AppSecret:       cfg.TwitterAppSecret,
			AccessToken:     cfg.TwitterAccessToken,
			AccessSecret:    cfg.TwitterAccessSecret,
			BaseURL:         cfg.XAPIBaseURL,
			FallbackEnabled: cfg.XFallbackEnabled,
			Timeout:         cfg.HTTPTimeout,
			Logger:          logger,
		})
	}
}

// Describe summarizes which providers cfg selects.
func Describe(cfg *config.Config) string {
	return fmt.Sprintf("%s -> %s (%s) -> %s", cfg.NewsSource, cfg.LLMProvider, cfg.Model(), cfg.Publisher)
}
