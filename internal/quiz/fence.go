package quiz

import (
	"regexp"
	"strings"
)

var (
	fenceOpen  = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n?")
	fenceClose = regexp.MustCompile("\\s*```$")
)

// StripCodeFence removes a surrounding Markdown code fence from model
// output. The opening fence may carry any language tag in any case; text
// without a fence is only trimmed.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = fenceOpen.ReplaceAllString(text, "")
		text = fenceClose.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
