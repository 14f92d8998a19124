// Package news fetches the handful of top headlines a run condenses into a
// single post.
package news

import (
	"context"
	"errors"
	"strings"
)

// ErrSourceUnavailable is returned when no usable headline could be fetched.
var ErrSourceUnavailable = errors.New("source unavailable")

// Headline is a single news item reduced to its title and source name.
type Headline struct {
	Title      string `json:"title"`
	SourceName string `json:"source_name"`
}

// String formats the headline as "<title> - <sourceName>".
func (h Headline) String() string {
	return h.Title + " - " + h.SourceName
}

// Source fetches an ordered list of headlines.
type Source interface {
	FetchHeadlines(ctx context.Context) ([]Headline, error)
	Name() string
}

// Strings maps headlines to their display form, preserving order.
func Strings(headlines []Headline) []string {
	out := make([]string, len(headlines))
	for i, h := range headlines {
		out[i] = h.String()
	}
	return out
}

// usable keeps headlines that have both a non-blank title and source name.
// The strings themselves are left as the provider sent them.
func usable(candidates []Headline, limit int) []Headline {
	headlines := make([]Headline, 0, len(candidates))
	for _, h := range candidates {
		if strings.TrimSpace(h.Title) == "" || strings.TrimSpace(h.SourceName) == "" {
			continue
		}
		headlines = append(headlines, h)
		if limit > 0 && len(headlines) == limit {
			break
		}
	}
	return headlines
}
