package chat

import (
	"regexp"
	"strings"
)

const titleLimit = 40

var newlineRuns = regexp.MustCompile(`\n+`)

// GenerateTitle derives a session title from the first user message:
// trimmed, newlines collapsed to spaces, cut at a word boundary near 40
// characters with an ellipsis when truncated.
func GenerateTitle(firstMessage string) string {
	clean := newlineRuns.ReplaceAllString(strings.TrimSpace(firstMessage), " ")
	if clean == "" {
		return "New Session"
	}

	runes := []rune(clean)
	if len(runes) <= titleLimit {
		return clean
	}

	truncated := string(runes[:titleLimit])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 20 {
		return truncated[:lastSpace] + "..."
	}
	return truncated + "..."
}
