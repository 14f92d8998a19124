package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

// NewsAPIClient fetches top headlines from newsapi.org.
type NewsAPIClient struct {
	apiKey     string
	baseURL    string
	pageSize   int
	category   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewsAPIOptions configures a NewsAPIClient.
type NewsAPIOptions struct {
	APIKey   string
	BaseURL  string
	PageSize int
	Category string
	Timeout  time.Duration
	Logger   *slog.Logger
}

type newsAPIResponse struct {
	Status       string `json:"status"`
	Code         string `json:"code"`
	Message      string `json:"message"`
	TotalResults int    `json:"totalResults"`
	Articles     []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"articles"`
}

// NewNewsAPIClient creates a new NewsAPI client
func NewNewsAPIClient(opts NewsAPIOptions) *NewsAPIClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://newsapi.org"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &NewsAPIClient{
		apiKey:   opts.APIKey,
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		pageSize: opts.PageSize,
		category: opts.Category,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger: logging.Section(opts.Logger, logging.SectionNews),
	}
}

// Name identifies the source in logs.
func (c *NewsAPIClient) Name() string {
	return "newsapi"
}

// FetchHeadlines issues one top-headlines request and returns the usable
// headlines in response order.
func (c *NewsAPIClient) FetchHeadlines(ctx context.Context) ([]Headline, error) {
	query := url.Values{}
	query.Set("language", "en")
	query.Set("pageSize", strconv.Itoa(c.pageSize))
	if c.category != "" {
		query.Set("category", c.category)
	}

	endpoint := c.baseURL + "/v2/top-headlines?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrSourceUnavailable, err)
	}
	req.Header.Set("User-Agent", "twitter-auto-poster-bot/1.0")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: newsapi request failed: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrSourceUnavailable, err)
	}

	var apiResp newsAPIResponse
	decodeErr := json.Unmarshal(body, &apiResp)

	if resp.StatusCode != http.StatusOK || apiResp.Status == "error" {
		c.logger.Error("newsapi request rejected",
			"status", resp.StatusCode,
			"code", apiResp.Code,
			"message", apiResp.Message,
		)
		if apiResp.Code != "" {
			return nil, fmt.Errorf("%w: newsapi returned status %d: %s: %s", ErrSourceUnavailable, resp.StatusCode, apiResp.Code, apiResp.Message)
		}
		return nil, fmt.Errorf("%w: newsapi returned status %d", ErrSourceUnavailable, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrSourceUnavailable, decodeErr)
	}

	candidates := make([]Headline, 0, len(apiResp.Articles))
	for _, article := range apiResp.Articles {
		candidates = append(candidates, Headline{
			Title:      article.Title,
			SourceName: article.Source.Name,
		})
	}

	headlines := usable(candidates, 0)
	c.logger.Info("headlines fetched",
		"articles", len(apiResp.Articles),
		"usable", len(headlines),
		"total_results", apiResp.TotalResults,
	)

	if len(headlines) == 0 {
		return nil, fmt.Errorf("%w: no usable articles in response", ErrSourceUnavailable)
	}
	return headlines, nil
}
