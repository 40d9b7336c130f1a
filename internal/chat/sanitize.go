package chat

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// maxSanitizePasses bounds the strip/decode loop for deeply entity-encoded input.
const maxSanitizePasses = 8

// Sanitize strips all markup from s and trims surrounding whitespace. Entities are
// decoded only while decoding exposes no new markup: strip and decode repeat until
// the text stops changing, so encoded tags like "&lt;b&gt;" are removed as well.
func Sanitize(s string) string {
	for range maxSanitizePasses {
		next := html.UnescapeString(strict.Sanitize(s))
		if next == s {
			return strings.TrimSpace(next)
		}
		s = next
	}
	// Still changing: keep the escaped form, which holds no live markup.
	return strings.TrimSpace(strict.Sanitize(s))
}
