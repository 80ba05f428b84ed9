package transcript

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	spacePunctRe = regexp.MustCompile(`\s+([.,!?;:])`)
)

var punctuationReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"…", "...",
	"\u00a0", " ",
)

// Normalize applies uniform whitespace and punctuation cleanup so the
// chunker never has to special-case which provider produced the text.
func Normalize(text string) string {
	text = punctuationReplacer.Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	text = spacePunctRe.ReplaceAllString(text, "$1")
	return strings.TrimSpace(text)
}
