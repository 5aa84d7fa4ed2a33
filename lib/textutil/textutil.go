package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a scraped name and strips all whitespace so the
// same entity spelled differently across sites compares equal.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchName reports whether the normalized name contains any of the given
// normalized fragments. Scraped labels drift with site redesigns, substring
// matching absorbs most of that drift.
func MatchName(name string, fragments ...string) bool {
	name = NormalizeName(name)
	for _, fragment := range fragments {
		if strings.Contains(name, NormalizeName(fragment)) {
			return true
		}
	}
	return false
}
