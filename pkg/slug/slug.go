// Package slug turns display names into stable URL- and ID-safe strings.
// Achievement badge IDs are derived from their titles this way.
package slug

import (
	"regexp"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Generate lowercases the name and collapses every run of non-alphanumeric
// characters into a single hyphen.
//
// Examples:
//   - "First Review" → "first-review"
//   - "Video Star!" → "video-star"
func Generate(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
