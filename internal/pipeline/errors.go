package pipeline

import (
	"errors"
	"fmt"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/news"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/publisher"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/summarizer"
)

// Error kinds. Every run failure matches exactly one of the first four with
// errors.Is.
var (
	ErrConfigMissing         = config.ErrConfigMissing
	ErrSourceUnavailable     = news.ErrSourceUnavailable
	ErrGenerationUnavailable = summarizer.ErrGenerationUnavailable
	ErrPublishFailed         = publisher.ErrPublishFailed

	// ErrTooLong is returned under the reject length policy. It is reported
	// with the ErrGenerationUnavailable kind.
	ErrTooLong = errors.New("post exceeds maximum length")
)

// Process exit codes.
const (
	ExitOK                    = 0
	ExitOther                 = 1
	ExitConfigMissing         = 2
	ExitSourceUnavailable     = 3
	ExitGenerationUnavailable = 4
	ExitPublishFailed         = 5
)

// Error is a run failure tagged with its kind and the state it happened in.
type Error struct {
	Kind  error
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// ExitCode maps a run error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConfigMissing):
		return ExitConfigMissing
	case errors.Is(err, ErrSourceUnavailable):
		return ExitSourceUnavailable
	case errors.Is(err, ErrGenerationUnavailable):
		return ExitGenerationUnavailable
	case errors.Is(err, ErrPublishFailed):
		return ExitPublishFailed
	default:
		return ExitOther
	}
}

// KindName returns a short, stable label for the error's kind.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigMissing):
		return "config_missing"
	case errors.Is(err, ErrSourceUnavailable):
		return "source_unavailable"
	case errors.Is(err, ErrGenerationUnavailable):
		return "generation_unavailable"
	case errors.Is(err, ErrPublishFailed):
		return "publish_failed"
	default:
		return "other"
	}
}
