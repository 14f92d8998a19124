package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	SourceNewsAPI = "newsapi"
	SourceRSS     = "rss"
	// SourceNone skips the headline step; the post is written from a fixed
	// topic prompt instead.
	SourceNone = "none"

	PublisherX        = "x"
	PublisherTelegram = "telegram"
	PublisherSlack    = "slack"

	PolicyWarn     = "warn"
	PolicyTruncate = "truncate"
	PolicyReject   = "reject"
)

// ErrConfigMissing is matched by every *ConfigError.
var ErrConfigMissing = errors.New("config missing")

// Config holds all configuration for the application
type Config struct {
	// Server settings
	Port         string `json:"port"`
	Host         string `json:"host"`
	Schedule     string `json:"schedule"`
	RunAuthToken string `json:"-"` // Don't expose in JSON

	// Headline source settings
	NewsSource     string `json:"news_source"`
	NewsAPIKey     string `json:"-"`
	NewsAPIBaseURL string `json:"news_api_base_url"`
	NewsPageSize   int    `json:"news_page_size"`
	NewsCategory   string `json:"news_category"`
	NewsRSSURL     string `json:"news_rss_url"`

	// Language model settings
	LLMProvider      string  `json:"llm_provider"`
	LLMModel         string  `json:"llm_model"`
	LLMTemperature   float64 `json:"llm_temperature"`
	LLMMaxTokens     int     `json:"llm_max_tokens"`
	OpenAIAPIKey     string  `json:"-"`
	OpenAIBaseURL    string  `json:"openai_base_url"`
	GeminiAPIKey     string  `json:"-"`
	GeminiBaseURL    string  `json:"gemini_base_url"`
	AnthropicAPIKey  string  `json:"-"`
	AnthropicBaseURL string  `json:"anthropic_base_url"`

	// Publisher settings
	Publisher           string `json:"publisher"`
	TwitterAppKey       string `json:"-"`
	TwitterAppSecret    string `json:"-"`
	TwitterAccessToken  string `json:"-"`
	TwitterAccessSecret string `json:"-"`
	XAPIBaseURL         string `json:"x_api_base_url"`
	XFallbackEnabled    bool   `json:"x_fallback_enabled"`
	TelegramBotToken    string `json:"-"`
	TelegramChatID      string `json:"telegram_chat_id"`
	TelegramAPIEndpoint string `json:"telegram_api_endpoint"`
	SlackBotToken       string `json:"-"`
	SlackChannel        string `json:"slack_channel"`
	SlackAPIURL         string `json:"slack_api_url"`

	// Post length handling
	PostMaxLength int    `json:"post_max_length"`
	LengthPolicy  string `json:"length_policy"`

	HTTPTimeout   time.Duration `json:"http_timeout"`
	LogLevel      string        `json:"log_level"`
	LogFormat     string        `json:"log_format"`
	ArchiveBucket string        `json:"archive_bucket"`
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	config := FromEnvFile()
	return config, config.Validate()
}

// FromEnvFile loads a .env file if one exists, then reads the environment
// without validating it.
func FromEnvFile() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads configuration from the environment without validating it.
func FromEnv() *Config {
	return &Config{
		Port:         getEnvOrDefault("PORT", "8080"),
		Host:         getEnvOrDefault("HOST", "0.0.0.0"),
		Schedule:     getEnvOrDefault("SCHEDULE", "0 */6 * * *"),
		RunAuthToken: getEnvOrDefault("RUN_AUTH_TOKEN", ""),

		NewsSource:     strings.ToLower(getEnvOrDefault("NEWS_SOURCE", SourceNewsAPI)),
		NewsAPIKey:     getEnvOrDefault("NEWS_API_KEY", ""),
		NewsAPIBaseURL: getEnvOrDefault("NEWS_API_BASE_URL", "https://newsapi.org"),
		NewsPageSize:   clamp(getEnvOrDefaultInt("NEWS_PAGE_SIZE", 5), 3, 5),
		NewsCategory:   lookupEnvOrDefault("NEWS_CATEGORY", "general"),
		NewsRSSURL:     getEnvOrDefault("NEWS_RSS_URL", ""),

		LLMProvider:      strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderOpenAI)),
		LLMModel:         getEnvOrDefault("LLM_MODEL", ""),
		LLMTemperature:   getEnvOrDefaultFloat("LLM_TEMPERATURE", 0.7),
		LLMMaxTokens:     getEnvOrDefaultInt("LLM_MAX_TOKENS", 150),
		OpenAIAPIKey:     getEnvOrDefault("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    getEnvOrDefault("OPENAI_BASE_URL", ""),
		GeminiAPIKey:     getEnvOrDefault("GEMINI_API_KEY", ""),
		GeminiBaseURL:    getEnvOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		AnthropicAPIKey:  getEnvOrDefault("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnvOrDefault("ANTHROPIC_BASE_URL", ""),

		Publisher:           strings.ToLower(getEnvOrDefault("PUBLISHER", PublisherX)),
		TwitterAppKey:       getEnvOrDefault("TWITTER_APP_KEY", ""),
		TwitterAppSecret:    getEnvOrDefault("TWITTER_APP_SECRET", ""),
		TwitterAccessToken:  getEnvOrDefault("TWITTER_ACCESS_TOKEN", ""),
		TwitterAccessSecret: getEnvOrDefault("TWITTER_ACCESS_SECRET", ""),
		XAPIBaseURL:         getEnvOrDefault("X_API_BASE_URL", "https://api.twitter.com"),
		XFallbackEnabled:    getEnvOrDefaultBool("X_FALLBACK_ENABLED", true),
		TelegramBotToken:    getEnvOrDefault("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:      getEnvOrDefault("TELEGRAM_CHAT_ID", ""),
		TelegramAPIEndpoint: getEnvOrDefault("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
		SlackBotToken:       getEnvOrDefault("SLACK_BOT_TOKEN", ""),
		SlackChannel:        getEnvOrDefault("SLACK_CHANNEL", "#general"),
		SlackAPIURL:         getEnvOrDefault("SLACK_API_URL", "https://slack.com/api/chat.postMessage"),

		PostMaxLength: getEnvOrDefaultInt("POST_MAX_LENGTH", 280),
		LengthPolicy:  strings.ToLower(getEnvOrDefault("LENGTH_POLICY", PolicyTruncate)),

		HTTPTimeout:   getEnvOrDefaultDuration("HTTP_TIMEOUT", 10*time.Second),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:     getEnvOrDefault("LOG_FORMAT", "json"),
		ArchiveBucket: getEnvOrDefault("ARCHIVE_BUCKET", ""),
	}
}

// Validate checks that provider names are known and that every credential
// required by the selected providers is present. All missing fields are
// reported in a single *ConfigError.
func (c *Config) Validate() error {
	switch c.NewsSource {
	case SourceNewsAPI, SourceRSS, SourceNone:
	default:
		return &ConfigError{Fields: []string{"NEWS_SOURCE"}, Message: "unsupported source " + strconv.Quote(c.NewsSource)}
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderGemini, ProviderAnthropic:
	default:
		return &ConfigError{Fields: []string{"LLM_PROVIDER"}, Message: "unsupported provider " + strconv.Quote(c.LLMProvider)}
	}
	if err := c.checkPublisherName(); err != nil {
		return err
	}
	switch c.LengthPolicy {
	case PolicyWarn, PolicyTruncate, PolicyReject:
	default:
		return &ConfigError{Fields: []string{"LENGTH_POLICY"}, Message: "must be one of warn, truncate, reject"}
	}

	var missing []string
	require := func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}

	switch c.NewsSource {
	case SourceNewsAPI:
		require("NEWS_API_KEY", c.NewsAPIKey)
	case SourceRSS:
		require("NEWS_RSS_URL", c.NewsRSSURL)
	}

	switch c.LLMProvider {
	case ProviderOpenAI:
		require("OPENAI_API_KEY", c.OpenAIAPIKey)
	case ProviderGemini:
		require("GEMINI_API_KEY", c.GeminiAPIKey)
	case ProviderAnthropic:
		require("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	}

	c.requirePublisher(require)

	if len(missing) > 0 {
		return &ConfigError{Fields: missing, Message: "required value is not set"}
	}

	if err := c.checkSlackToken(); err != nil {
		return err
	}
	if c.PostMaxLength <= 0 {
		return &ConfigError{Fields: []string{"POST_MAX_LENGTH"}, Message: "must be positive"}
	}
	return nil
}

// ValidatePublisher checks only what the selected publisher needs. It is
// used by the test post, which never fetches or generates anything.
func (c *Config) ValidatePublisher() error {
	if err := c.checkPublisherName(); err != nil {
		return err
	}

	var missing []string
	c.requirePublisher(func(field, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	})
	if len(missing) > 0 {
		return &ConfigError{Fields: missing, Message: "required value is not set"}
	}
	return c.checkSlackToken()
}

func (c *Config) checkPublisherName() error {
	switch c.Publisher {
	case PublisherX, PublisherTelegram, PublisherSlack:
		return nil
	default:
		return &ConfigError{Fields: []string{"PUBLISHER"}, Message: "unsupported publisher " + strconv.Quote(c.Publisher)}
	}
}

func (c *Config) requirePublisher(require func(field, value string)) {
	switch c.Publisher {
	case PublisherX:
		require("TWITTER_APP_KEY", c.TwitterAppKey)
		require("TWITTER_APP_SECRET", c.TwitterAppSecret)
		require("TWITTER_ACCESS_TOKEN", c.TwitterAccessToken)
		require("TWITTER_ACCESS_SECRET", c.TwitterAccessSecret)
	case PublisherTelegram:
		require("TELEGRAM_BOT_TOKEN", c.TelegramBotToken)
		require("TELEGRAM_CHAT_ID", c.TelegramChatID)
	case PublisherSlack:
		require("SLACK_BOT_TOKEN", c.SlackBotToken)
	}
}

func (c *Config) checkSlackToken() error {
	if c.Publisher == PublisherSlack && !strings.HasPrefix(c.SlackBotToken, "xoxb-") {
		return &ConfigError{Fields: []string{"SLACK_BOT_TOKEN"}, Message: "must start with xoxb-"}
	}
	return nil
}

// Model returns the configured model name or the default for the provider.
func (c *Config) Model() string {
	if c.LLMModel != "" {
		return c.LLMModel
	}
	switch c.LLMProvider {
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderAnthropic:
		return "claude-haiku-4-5"
	default:
		return "gpt-4o-mini"
	}
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnvOrDefault is like getEnvOrDefault but keeps an explicitly empty value.
func lookupEnvOrDefault(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default if not set
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvOrDefaultBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvOrDefaultDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ConfigError represents a configuration error
type ConfigError struct {
	Fields  []string
	Message string
}

func (e *ConfigError) Error() string {
	return strings.Join(e.Fields, ", ") + ": " + e.Message
}

// Is reports ErrConfigMissing so callers can classify without a type switch.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfigMissing
}
