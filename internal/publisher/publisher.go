// Package publisher posts the generated text to a social network.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrPublishFailed is returned when the post could not be published by any
// attempted API version.
var ErrPublishFailed = errors.New("publish failed")

// Publisher posts text and reports the created post.
type Publisher interface {
	Publish(ctx context.Context, text string) (*Result, error)
	Name() string
}

// Result describes a published post.
type Result struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	APIVersion string `json:"api_version,omitempty"`
	Provider   string `json:"provider"`
}

// ErrorDetail is one entry of a provider's error list.
type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// RateLimit holds the rate-limit counters a provider returned with a
// response. Zero values mean the header was absent.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// ProviderError carries the diagnostics of a failed publish attempt.
type ProviderError struct {
	Provider   string        `json:"provider"`
	APIVersion string        `json:"api_version,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Title      string        `json:"title,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Errors     []ErrorDetail `json:"errors,omitempty"`
	RateLimit  RateLimit     `json:"rate_limit"`
	Err        error         `json:"-"`
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(e.Provider)
	if e.APIVersion != "" {
		b.WriteString(" ")
		b.WriteString(e.APIVersion)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Title != "" {
		b.WriteString(": ")
		b.WriteString(e.Title)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	for _, d := range e.Errors {
		if d.Code != 0 {
			fmt.Fprintf(&b, " [%d] %s", d.Code, d.Message)
		} else {
			fmt.Fprintf(&b, " [%s]", d.Message)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// LogAttrs flattens the diagnostics into slog key/value pairs.
func (e *ProviderError) LogAttrs() []any {
	attrs := []any{"provider", e.Provider}
	if e.APIVersion != "" {
		attrs = append(attrs, "api_version", e.APIVersion)
	}
	if e.StatusCode != 0 {
		attrs = append(attrs, "status", e.StatusCode)
	}
	if e.Title != "" {
		attrs = append(attrs, "title", e.Title)
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}
	if len(e.Errors) > 0 {
		codes := make([]string, 0, len(e.Errors))
		for _, d := range e.Errors {
			codes = append(codes, strconv.Itoa(d.Code)+": "+d.Message)
		}
		attrs = append(attrs, "errors", codes)
	}
	if e.RateLimit.Limit != 0 || e.RateLimit.Remaining != 0 {
		attrs = append(attrs,
			"rate_limit", e.RateLimit.Limit,
			"rate_limit_remaining", e.RateLimit.Remaining,
			"rate_limit_reset", e.RateLimit.Reset,
		)
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err.Error())
	}
	return attrs
}

// ProviderErrors returns every ProviderError in err's tree in attempt order.
func ProviderErrors(err error) []*ProviderError {
	var out []*ProviderError
	var walk func(error)
	walk = func(e error) {
		switch v := e.(type) {
		case nil:
		case *ProviderError:
			out = append(out, v)
		case interface{ Unwrap() []error }:
			for _, inner := range v.Unwrap() {
				walk(inner)
			}
		case interface{ Unwrap() error }:
			walk(v.Unwrap())
		}
	}
	walk(err)
	return out
}
