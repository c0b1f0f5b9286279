// Package tags extracts hashtag-style tags from page text.
package tags

import (
	"regexp"
	"strings"
)

// Marker prefixes a tag in page text.
const Marker = "#"

// tagRe matches a marker followed by one or more ASCII word characters.
// The marker is not a word character, so "#a#b" yields two matches.
var tagRe = regexp.MustCompile(`#(\w+)`)

// Extract returns every tag occurrence in text, in order, duplicates kept.
// The leading marker is stripped. Text without tags yields an empty slice.
func Extract(text string) []string {
	matches := tagRe.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// Matches reports whether an extracted tag name satisfies a tag query.
// Matching is by substring: the query "a" matches the tag "cat".
func Matches(name, query string) bool {
	return strings.Contains(name, query)
}

// Unique returns names with duplicates removed, keeping first-seen order.
func Unique(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
