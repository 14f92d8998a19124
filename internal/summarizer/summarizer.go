// Package summarizer condenses a list of headlines into one short post using
// a hosted text-generation model.
package summarizer

import (
	"context"
	"errors"
	"strings"
)

// ErrGenerationUnavailable is returned when no completion text could be
// obtained from the provider.
var ErrGenerationUnavailable = errors.New("generation unavailable")

// Instruction is sent ahead of the headlines in every prompt.
const Instruction = "Condense these news headlines into one social media post under 280 characters. " +
	"Plain text only, emojis are allowed, no hashtags. Only output the post."

// TopicInstruction is the whole prompt when a run has no headlines.
const TopicInstruction = "Generate a unique social media post about world news, politics, crypto, or modern technology. " +
	"Keep it informative and under 280 characters. Plain text only, emojis are allowed, no hashtags. Only output the post."

// Summarizer turns headlines into a single post.
type Summarizer interface {
	GenerateSummary(ctx context.Context, headlines []string) (string, error)
	Name() string
}

// Options holds the generation settings shared by all providers.
type Options struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// BuildPrompt places the instruction first and then every headline on its
// own line, in order.
func BuildPrompt(headlines []string) string {
	if len(headlines) == 0 {
		return TopicInstruction
	}
	var b strings.Builder
	b.WriteString(Instruction)
	for _, h := range headlines {
		b.WriteString("\n")
		b.WriteString(h)
	}
	return b.String()
}

// cleanCompletion trims the completion and reports whether anything is left.
func cleanCompletion(text string) (string, bool) {
	text = strings.TrimSpace(text)
	return text, text != ""
}
