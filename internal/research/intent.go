package research

import (
	"regexp"
	"strings"
)

// Kind says what form the handed-over content takes.
type Kind string

const (
	KindURL  Kind = "url"
	KindText Kind = "text"
)

var (
	urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

	textTriggers = []*regexp.Regexp{
		regexp.MustCompile(`(?is)learn this[:\s]+(.+)`),
		regexp.MustCompile(`(?is)remember this[:\s]+(.+)`),
		regexp.MustCompile(`(?is)here'?s? (?:some )?(?:info|information)[:\s]+(.+)`),
	}
)

// minTextLen keeps trivially short passages out of the study path; a
// five-word "remember this: buy milk" should stay a normal exchange.
const minTextLen = 20

// DetectIntent reports whether the message hands the companion something to
// read: a URL anywhere in the message, or a "learn this: ..." passage.
func DetectIntent(message string) (Kind, string, bool) {
	if m := urlPattern.FindString(message); m != "" {
		return KindURL, m, true
	}
	for _, re := range textTriggers {
		if m := re.FindStringSubmatch(message); m != nil {
			text := strings.TrimSpace(m[1])
			if len(text) > minTextLen {
				return KindText, text, true
			}
		}
	}
	return "", "", false
}
