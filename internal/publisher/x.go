package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

const (
	// APIVersionV2 is the primary X endpoint.
	APIVersionV2 = "v2"
	// APIVersionV11 is the legacy endpoint used as fallback.
	APIVersionV11 = "v1.1"

	defaultXBaseURL = "https://api.twitter.com"
)

// XOptions configures an XClient.
type XOptions struct {
	AppKey          string
	AppSecret       string
	AccessToken     string
	AccessSecret    string
	BaseURL         string
	FallbackEnabled bool
	Timeout         time.Duration
	Logger          *slog.Logger
}

// XClient posts to X with OAuth1 user-context credentials.
type XClient struct {
	httpClient *http.Client
	baseURL    string
	fallback   bool
	logger     *slog.Logger
}

// NewXClient creates a new X client
func NewXClient(opts XOptions) *XClient {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultXBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	config := oauth1.NewConfig(opts.AppKey, opts.AppSecret)
	token := oauth1.NewToken(opts.AccessToken, opts.AccessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = opts.Timeout

	return &XClient{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		fallback:   opts.FallbackEnabled,
		logger:     logging.Section(opts.Logger, logging.SectionPublisher),
	}
}

// Name identifies the publisher in logs.
func (c *XClient) Name() string {
	return "x"
}

// Publish posts through v2 and, when enabled, retries once through v1.1.
func (c *XClient) Publish(ctx context.Context, text string) (*Result, error) {
	result, v2Err := c.postV2(ctx, text)
	if v2Err == nil {
		c.logger.Info("post published", "post_id", result.ID, "api_version", result.APIVersion)
		return result, nil
	}
	c.logAttemptFailure(v2Err)

	if !c.fallback || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", ErrPublishFailed, v2Err)
	}

	c.logger.Warn("retrying with fallback api version", "api_version", APIVersionV11)
	result, v11Err := c.postV11(ctx, text)
	if v11Err == nil {
		c.logger.Info("post published", "post_id", result.ID, "api_version", result.APIVersion)
		return result, nil
	}
	c.logAttemptFailure(v11Err)

	return nil, fmt.Errorf("%w: %w", ErrPublishFailed, errors.Join(v2Err, v11Err))
}

func (c *XClient) logAttemptFailure(err error) {
	var perr *ProviderError
	if errors.As(err, &perr) {
		c.logger.Error("post attempt failed", perr.LogAttrs()...)
		return
	}
	c.logger.Error("post attempt failed", "error", err)
}

func (c *XClient) postV2(ctx context.Context, text string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), APIVersion: APIVersionV2, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), APIVersion: APIVersionV2, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	var created struct {
		Data struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"data"`
	}
	if err := c.do(req, APIVersionV2, &created); err != nil {
		return nil, err
	}
	if created.Data.ID == "" {
		return nil, &ProviderError{Provider: c.Name(), APIVersion: APIVersionV2, Detail: "response carried no post id"}
	}

	return &Result{
		ID:         created.Data.ID,
		Text:       created.Data.Text,
		APIVersion: APIVersionV2,
		Provider:   c.Name(),
	}, nil
}

func (c *XClient) postV11(ctx context.Context, text string) (*Result, error) {
	form := url.Values{}
	form.Set("status", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/1.1/statuses/update.json", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Provider: c.Name(), APIVersion: APIVersionV11, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var status struct {
		IDStr string `json:"id_str"`
		Text  string `json:"text"`
	}
	if err := c.do(req, APIVersionV11, &status); err != nil {
		return nil, err
	}
	if status.IDStr == "" {
		return nil, &ProviderError{Provider: c.Name(), APIVersion: APIVersionV11, Detail: "response carried no post id"}
	}

	return &Result{
		ID:         status.IDStr,
		Text:       status.Text,
		APIVersion: APIVersionV11,
		Provider:   c.Name(),
	}, nil
}

// do sends a signed request and decodes a 2xx body into out. Any other
// outcome is returned as a *ProviderError.
func (c *XClient) do(req *http.Request, version string, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: c.Name(), APIVersion: version, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ProviderError{Provider: c.Name(), APIVersion: version, StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeXError(c.Name(), version, resp, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &ProviderError{Provider: c.Name(), APIVersion: version, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func decodeXError(provider, version string, resp *http.Response, body []byte) *ProviderError {
	perr := &ProviderError{
		Provider:   provider,
		APIVersion: version,
		StatusCode: resp.StatusCode,
		RateLimit:  parseRateLimit(resp.Header),
	}

	var payload struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		perr.Detail = strings.TrimSpace(string(body))
		return perr
	}

	perr.Title = payload.Title
	perr.Detail = payload.Detail
	for _, e := range payload.Errors {
		perr.Errors = append(perr.Errors, ErrorDetail{Code: e.Code, Message: e.Message})
	}
	return perr
}

func parseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	rl.Limit, _ = strconv.Atoi(h.Get("x-rate-limit-limit"))
	rl.Remaining, _ = strconv.Atoi(h.Get("x-rate-limit-remaining"))
	if reset, err := strconv.ParseInt(h.Get("x-rate-limit-reset"), 10, 64); err == nil {
		rl.Reset = time.Unix(reset, 0).UTC()
	}
	return rl
}
