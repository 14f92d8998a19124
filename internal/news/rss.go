package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
)

// Feed represents an RSS feed
type Feed struct {
	Title string `xml:"channel>title"`
	Items []Item `xml:"channel>item"`
}

// Item represents an RSS item
type Item struct {
	Title      string    `xml:"title"`
	Link       string    `xml:"link"`
	PubDate    string    `xml:"pubDate"`
	GUID       string    `xml:"guid"`
	ParsedDate time.Time `xml:"-"`
}

// RSSSource reads headlines from a single RSS feed. The feed's channel title
// is used as the source name of every item.
type RSSSource struct {
	url        string
	limit      int
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewRSSSource creates a new RSS headline source
func NewRSSSource(feedURL string, limit int, timeout time.Duration, logger *slog.Logger) *RSSSource {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RSSSource{
		url:   feedURL,
		limit: limit,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgent: "twitter-auto-poster-bot/1.0",
		logger:    logging.Section(logger, logging.SectionNews),
	}
}

// Name identifies the source in logs.
func (s *RSSSource) Name() string {
	return "rss"
}

// FetchHeadlines fetches the feed and returns the newest usable items.
func (s *RSSSource) FetchHeadlines(ctx context.Context) ([]Headline, error) {
	feed, err := s.FetchFeed(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	items := SortNewestFirst(GetUniqueItems(feed.Items))
	candidates := make([]Headline, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, Headline{
			// Surrounding whitespace here is XML layout, not part of the title.
			Title:      strings.TrimSpace(item.Title),
			SourceName: feed.Title,
		})
	}

	headlines := usable(candidates, s.limit)
	s.logger.Info("headlines fetched", "feed", feed.Title, "items", len(feed.Items), "usable", len(headlines))

	if len(headlines) == 0 {
		return nil, fmt.Errorf("%w: no usable items in feed %s", ErrSourceUnavailable, s.url)
	}
	return headlines, nil
}

// FetchFeed fetches and parses an RSS feed from the given URL
func (s *RSSSource) FetchFeed(ctx context.Context, url string) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var feed Feed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("parsing RSS feed: %w", err)
	}
	feed.Title = strings.TrimSpace(feed.Title)

	for i := range feed.Items {
		if feed.Items[i].PubDate != "" {
			if parsedDate, err := parseRSSDate(feed.Items[i].PubDate); err == nil {
				feed.Items[i].ParsedDate = parsedDate
			}
		}
	}

	return &feed, nil
}

// parseRSSDate parses various RSS date formats
func parseRSSDate(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		time.RFC3339,
		"2006-01-02 15:04:05",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}

// SortNewestFirst orders items by publication date, newest first. Items
// without a parseable date keep their feed order after the dated ones.
func SortNewestFirst(items []Item) []Item {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ParsedDate.After(items[j].ParsedDate)
	})
	return items
}

// GetUniqueItems removes duplicate items based on GUID or link. Items with
// neither are kept.
func GetUniqueItems(items []Item) []Item {
	seen := make(map[string]bool)
	var unique []Item

	for _, item := range items {
		key := item.GUID
		if key == "" {
			key = item.Link
		}

		if key == "" {
			unique = append(unique, item)
			continue
		}
		if !seen[key] {
			seen[key] = true
			unique = append(unique, item)
		}
	}

	return unique
}
