package pipeline

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/config"
)

const ellipsis = "…"

// ApplyLengthPolicy enforces maxLen (in runes) on text. It returns the text
// to publish and whether it was shortened.
func ApplyLengthPolicy(text string, maxLen int, policy string) (string, bool, error) {
	n := utf8.RuneCountInString(text)
	if maxLen <= 0 || n <= maxLen {
		return text, false, nil
	}

	switch policy {
	case config.PolicyWarn:
		return text, false, nil
	case config.PolicyReject:
		return "", false, fmt.Errorf("%w: %d characters, limit %d", ErrTooLong, n, maxLen)
	default:
		return truncate(text, maxLen), true, nil
	}
}

// truncate cuts text on the last word boundary that leaves room for the
// ellipsis. A single overlong word is cut mid-word.
func truncate(text string, maxLen int) string {
	runes := []rune(text)
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}

	cut := runes[:maxLen-1]
	if i := lastSpace(cut); i > 0 {
		cut = cut[:i]
	}

	out := strings.TrimRightFunc(string(cut), func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == ';' || r == ':'
	})
	return out + ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
