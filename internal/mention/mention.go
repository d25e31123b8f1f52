// Package mention extracts @username mentions from comment text.
package mention

import (
	"regexp"

	"golang.org/x/text/cases"
)

var pattern = regexp.MustCompile(`@(\w+)`)

// Extract returns the usernames mentioned in text, without the leading @,
// in order of appearance. Repeated mentions are kept.
func Extract(text string) []string {
	matches := pattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Unique drops repeated mentions, comparing usernames case-insensitively and
// keeping the first spelling seen.
func Unique(mentions []string) []string {
	if len(mentions) == 0 {
		return nil
	}
	fold := cases.Fold()
	seen := make(map[string]bool, len(mentions))
	out := make([]string, 0, len(mentions))
	for _, m := range mentions {
		key := fold.String(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// Key normalizes a username for case-insensitive lookups.
func Key(username string) string {
	return cases.Fold().String(username)
}
