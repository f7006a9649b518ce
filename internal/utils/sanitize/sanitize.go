package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict is a cached bluemonday policy that removes all HTML tags and
// attributes. Safe for concurrent use as the policy is read-only after build;
// never call mutating helpers (AddAttr, AllowElements, ...) on it.
var strict = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true) // prevents word concatenation
	return p
}()

// Clean strips all HTML from user input and normalizes whitespace for storage.
// All note title/content text must pass through Clean before hitting the DB;
// repositories assume already-sanitized input.
//
// Examples:
//   - "<script>alert('x')</script>Hello" -> "Hello"
//   - "<b>a</b> <b>b</b>" -> "a b"
//   - "**markdown** text" -> "**markdown** text" (preserved)
func Clean(s string) string {
	cleaned := strict.Sanitize(s)
	cleaned = strings.TrimSpace(cleaned)

	// Unescape entities first so &#13; and friends become single chars.
	cleaned = html.UnescapeString(cleaned)

	// Non-breaking spaces break prefix search, normalize them away.
	cleaned = strings.ReplaceAll(cleaned, " ", " ")

	// Collapse runs of spaces while preserving newlines.
	lines := strings.Split(cleaned, "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}
