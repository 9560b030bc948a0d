// Package sanitize cleans user supplied chat text. Identity fields lose any
// markup; message bodies are relayed as typed.
package sanitize

import (
	"html"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxFieldLen caps identity fields (name, email, phone), in runes.
const MaxFieldLen = 64

var strictPolicy = bluemonday.StrictPolicy()

// Body normalises a message body without altering what the sender typed:
// invalid UTF-8 and control characters other than newline and tab are
// removed and surrounding whitespace is trimmed. Markup-looking text is
// kept; clients render bodies as plain text.
func Body(s string) string {
	s = strings.ToValidUTF8(s, "")
	s = strings.Map(func(r rune) rune {
		if r != '\n' && r != '\t' && unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// Field strips every HTML tag from an identity field, decodes entities and
// caps its length. An empty result is replaced with fallback.
func Field(s, fallback string) string {
	clean := Body(s)
	if clean != "" {
		clean = strictPolicy.Sanitize(html.UnescapeString(clean))
		clean = strings.TrimSpace(html.UnescapeString(clean))
	}
	if utf8.RuneCountInString(clean) > MaxFieldLen {
		clean = strings.TrimSpace(string([]rune(clean)[:MaxFieldLen]))
	}
	if clean == "" {
		return fallback
	}
	return clean
}
