package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

var credentialKeys = []string{
	"NEWS_API_KEY",
	"OPENAI_API_KEY",
	"TWITTER_APP_KEY",
	"TWITTER_APP_SECRET",
	"TWITTER_ACCESS_TOKEN",
	"TWITTER_ACCESS_SECRET",
}

func setCredentials(t *testing.T) {
	t.Helper()
	for _, key := range credentialKeys {
		t.Setenv(key, "test-"+key)
	}
}

func TestLoadConfig(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.NewsAPIKey != "test-NEWS_API_KEY" {
		t.Errorf("Expected NewsAPIKey to be 'test-NEWS_API_KEY', got '%s'", cfg.NewsAPIKey)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.LLMProvider != ProviderOpenAI {
		t.Errorf("Expected LLMProvider to be 'openai', got '%s'", cfg.LLMProvider)
	}

	if cfg.Publisher != PublisherX {
		t.Errorf("Expected Publisher to be 'x', got '%s'", cfg.Publisher)
	}

	if cfg.NewsPageSize != 5 {
		t.Errorf("Expected NewsPageSize to be 5, got %d", cfg.NewsPageSize)
	}

	if cfg.LLMTemperature != 0.7 {
		t.Errorf("Expected LLMTemperature to be 0.7, got %v", cfg.LLMTemperature)
	}

	if cfg.LLMMaxTokens != 150 {
		t.Errorf("Expected LLMMaxTokens to be 150, got %d", cfg.LLMMaxTokens)
	}

	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("Expected HTTPTimeout to be 10s, got %v", cfg.HTTPTimeout)
	}

	if !cfg.XFallbackEnabled {
		t.Error("Expected X fallback to be enabled by default")
	}

	if cfg.LengthPolicy != PolicyTruncate {
		t.Errorf("Expected LengthPolicy to be 'truncate', got '%s'", cfg.LengthPolicy)
	}

	if cfg.Model() != "gpt-4o-mini" {
		t.Errorf("Expected default model 'gpt-4o-mini', got '%s'", cfg.Model())
	}
}

func TestNewsCategory(t *testing.T) {
	os.Unsetenv("NEWS_CATEGORY")
	if got := FromEnv().NewsCategory; got != "general" {
		t.Errorf("Expected default category 'general', got '%s'", got)
	}

	t.Setenv("NEWS_CATEGORY", "")
	if got := FromEnv().NewsCategory; got != "" {
		t.Errorf("Expected explicit empty category to be kept, got '%s'", got)
	}
}

func TestNewsPageSizeIsClamped(t *testing.T) {
	tests := []struct {
		value    string
		expected int
	}{
		{"1", 3},
		{"4", 4},
		{"50", 5},
		{"invalid", 5},
	}

	for _, test := range tests {
		t.Setenv("NEWS_PAGE_SIZE", test.value)
		if got := FromEnv().NewsPageSize; got != test.expected {
			t.Errorf("NEWS_PAGE_SIZE=%s: expected %d, got %d", test.value, test.expected, got)
		}
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(t *testing.T)
		expectError bool
		errorFields []string
	}{
		{
			name: "missing NEWS_API_KEY",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("NEWS_API_KEY", "")
			},
			expectError: true,
			errorFields: []string{"NEWS_API_KEY"},
		},
		{
			name: "missing every twitter credential",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("TWITTER_APP_KEY", "")
				t.Setenv("TWITTER_APP_SECRET", "")
				t.Setenv("TWITTER_ACCESS_TOKEN", "")
				t.Setenv("TWITTER_ACCESS_SECRET", "")
			},
			expectError: true,
			errorFields: []string{"TWITTER_APP_KEY", "TWITTER_APP_SECRET", "TWITTER_ACCESS_TOKEN", "TWITTER_ACCESS_SECRET"},
		},
		{
			name: "whitespace-only key counts as missing",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("OPENAI_API_KEY", "   ")
			},
			expectError: true,
			errorFields: []string{"OPENAI_API_KEY"},
		},
		{
			name: "gemini provider needs GEMINI_API_KEY",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("LLM_PROVIDER", "gemini")
				t.Setenv("GEMINI_API_KEY", "")
			},
			expectError: true,
			errorFields: []string{"GEMINI_API_KEY"},
		},
		{
			name: "unknown provider",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("LLM_PROVIDER", "mystery")
			},
			expectError: true,
			errorFields: []string{"LLM_PROVIDER"},
		},
		{
			name: "telegram publisher does not need twitter credentials",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("TWITTER_APP_KEY", "")
				t.Setenv("PUBLISHER", "telegram")
				t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
				t.Setenv("TELEGRAM_CHAT_ID", "@headlines")
			},
			expectError: false,
		},
		{
			name: "invalid SLACK_BOT_TOKEN prefix",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("PUBLISHER", "slack")
				t.Setenv("SLACK_BOT_TOKEN", "invalid-token")
			},
			expectError: true,
			errorFields: []string{"SLACK_BOT_TOKEN"},
		},
		{
			name: "rss source needs NEWS_RSS_URL only",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("NEWS_API_KEY", "")
				t.Setenv("NEWS_SOURCE", "rss")
				t.Setenv("NEWS_RSS_URL", "https://example.com/feed.xml")
			},
			expectError: false,
		},
		{
			name: "topic mode needs no news credentials",
			setupEnv: func(t *testing.T) {
				setCredentials(t)
				t.Setenv("NEWS_API_KEY", "")
				t.Setenv("NEWS_SOURCE", "none")
			},
			expectError: false,
		},
		{
			name:        "valid configuration",
			setupEnv:    setCredentials,
			expectError: false,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			test.setupEnv(t)

			_, err := Load()
			if test.expectError && err == nil {
				t.Fatalf("Expected validation error for %v", test.errorFields)
			}
			if !test.expectError && err != nil {
				t.Fatalf("Unexpected validation error: %v", err)
			}
			if !test.expectError {
				return
			}

			if !errors.Is(err, ErrConfigMissing) {
				t.Errorf("Expected error to match ErrConfigMissing, got %v", err)
			}

			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("Expected ConfigError, got %T", err)
			}
			if len(configErr.Fields) != len(test.errorFields) {
				t.Fatalf("Expected fields %v, got %v", test.errorFields, configErr.Fields)
			}
			for i, field := range test.errorFields {
				if configErr.Fields[i] != field {
					t.Errorf("Expected error field '%s', got '%s'", field, configErr.Fields[i])
				}
			}
		})
	}
}

func TestValidatePublisher(t *testing.T) {
	cfg := &Config{
		Publisher:           PublisherX,
		TwitterAppKey:       "key",
		TwitterAppSecret:    "secret",
		TwitterAccessToken:  "token",
		TwitterAccessSecret: "",
	}

	err := cfg.ValidatePublisher()
	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
	if len(configErr.Fields) != 1 || configErr.Fields[0] != "TWITTER_ACCESS_SECRET" {
		t.Errorf("Unexpected fields %v", configErr.Fields)
	}

	// News and model credentials are not needed for a test post.
	cfg.TwitterAccessSecret = "access"
	if err := cfg.ValidatePublisher(); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}

	cfg.Publisher = PublisherSlack
	cfg.SlackBotToken = "invalid-token"
	if err := cfg.ValidatePublisher(); !errors.Is(err, ErrConfigMissing) {
		t.Errorf("Expected ConfigError for slack token, got %v", err)
	}
}

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		expected     string
	}{
		{
			name:         "environment variable exists",
			key:          "TEST_KEY",
			defaultValue: "default",
			envValue:     "env_value",
			expected:     "env_value",
		},
		{
			name:         "environment variable does not exist",
			key:          "NONEXISTENT_KEY",
			defaultValue: "default",
			envValue:     "",
			expected:     "default",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(test.key, test.envValue)

			result := getEnvOrDefault(test.key, test.defaultValue)
			if result != test.expected {
				t.Errorf("Expected '%s', got '%s'", test.expected, result)
			}
		})
	}
}

func TestGetEnvOrDefaultDuration(t *testing.T) {
	tests := []struct {
		envValue string
		expected time.Duration
	}{
		{"5s", 5 * time.Second},
		{"invalid", 10 * time.Second},
		{"-1s", 10 * time.Second},
		{"", 10 * time.Second},
	}

	for _, test := range tests {
		t.Setenv("TEST_DURATION_KEY", test.envValue)
		if got := getEnvOrDefaultDuration("TEST_DURATION_KEY", 10*time.Second); got != test.expected {
			t.Errorf("%q: expected %v, got %v", test.envValue, test.expected, got)
		}
	}
}
