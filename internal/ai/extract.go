package ai

import (
	"regexp"
	"strings"
)

var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\s*\\n?```")

// ExtractJSON normalizes a model response that may wrap its JSON payload in
// a markdown code fence. Fence handling lives here so parser callers and
// their tests never deal with fence variants.
func ExtractJSON(content string) string {
	content = strings.TrimSpace(content)

	// Pure JSON passes through untouched
	if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
		return content
	}

	matches := codeFencePattern.FindStringSubmatch(content)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	return content
}
