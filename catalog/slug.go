package catalog

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify normalizes a display string into a lower-case
// alphanumeric-and-hyphen identifier. Idempotent: Slugify(Slugify(x)) ==
// Slugify(x).
func Slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// AttributeTaxonomy returns the catalog taxonomy key for an attribute
// name, e.g. "Shoe Size" -> "pa_shoe-size".
func AttributeTaxonomy(name string) string {
	return "pa_" + Slugify(name)
}
