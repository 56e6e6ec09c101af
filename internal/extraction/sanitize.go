package extraction

import (
	"regexp"
	"strings"
)

// fenceMarker matches a markdown code fence with an optional language tag
var fenceMarker = regexp.MustCompile("```[A-Za-z0-9_+-]*")

// Sanitize strips incidental markdown code fences from a model reply.
// Text that does not start with a fence is only trimmed.
func Sanitize(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = fenceMarker.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// IsFailure reports whether a reply is the model's failure sentinel rather than a record
func IsFailure(text string) bool {
	text = Sanitize(text)
	if text == "" {
		return true
	}
	if strings.HasPrefix(text, "{") {
		return false
	}
	text = strings.ToLower(strings.Trim(text, "\"'`❌ \t\r\n."))
	return strings.Contains(text, FailureSentinel) || strings.Contains(text, arabicFailure)
}
