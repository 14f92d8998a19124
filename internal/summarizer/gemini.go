package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient calls the Gemini generateContent REST endpoint.
type GeminiClient struct {
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
	baseURL     string
	logger      *slog.Logger
}

// NewGeminiClient creates a new Gemini API client
func NewGeminiClient(opts Options, timeout time.Duration, logger *slog.Logger) *GeminiClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		apiKey:      opts.APIKey,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.Section(logger, logging.SectionSummarizer),
	}
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Name identifies the provider in logs.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// GenerateSummary sends the prompt for the given headlines and returns the
// first candidate's text.
func (c *GeminiClient) GenerateSummary(ctx context.Context, headlines []string) (string, error) {
	prompt := BuildPrompt(headlines)

	geminiReq := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: prompt}},
			},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxTokens,
		},
	}

	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.model)

	body, err := json.Marshal(geminiReq)
	if err != nil {
		return "", fmt.Errorf("%w: marshaling request: %v", ErrGenerationUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: creating request: %v", ErrGenerationUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	// Header rather than ?key= so transport errors never carry the key.
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: sending request: %v", ErrGenerationUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrGenerationUnavailable, err)
	}

	var geminiResp geminiResponse
	decodeErr := json.Unmarshal(respBody, &geminiResp)

	if resp.StatusCode != http.StatusOK {
		attrs := []any{"status", resp.StatusCode, "model", c.model}
		if geminiResp.Error != nil {
			attrs = append(attrs, "error_status", geminiResp.Error.Status, "message", geminiResp.Error.Message)
		}
		c.logger.Error("gemini request failed", attrs...)
		return "", fmt.Errorf("%w: gemini returned status %d: %s", ErrGenerationUnavailable, resp.StatusCode, string(respBody))
	}
	if decodeErr != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrGenerationUnavailable, decodeErr)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content in gemini response", ErrGenerationUnavailable)
	}

	var text strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	summary, ok := cleanCompletion(text.String())
	if !ok {
		return "", fmt.Errorf("%w: empty gemini completion (finish reason %q)", ErrGenerationUnavailable, geminiResp.Candidates[0].FinishReason)
	}

	c.logger.Info("summary generated", "provider", c.Name(), "model", c.model, "length", len([]rune(summary)))
	return summary, nil
}
