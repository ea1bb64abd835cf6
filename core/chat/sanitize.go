package chat

import (
	"regexp"
	"strings"
)

var (
	tagRegex = regexp.MustCompile(`<[^>]*>`)

	entityReplacer = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// Sanitize strips tag-like substrings, decodes the supported HTML entities, collapses whitespace runs into one space
// and truncates the result to MaxTextLen characters.
// Stripping and decoding repeat until the text stops changing, so a decoded entity can never smuggle a tag back in
// and Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	for {
		next := entityReplacer.Replace(tagRegex.ReplaceAllString(s, ""))
		if next == s {
			break
		}
		s = next
	}

	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > MaxTextLen {
		s = strings.TrimSpace(string(runes[:MaxTextLen]))
	}
	return s
}
