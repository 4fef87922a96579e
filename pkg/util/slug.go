package util

import (
	"regexp"
	"strings"
)

var (
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9_]+`)
	repeatedDash  = regexp.MustCompile(`-{2,}`)
	validSlugForm = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
)

// Slugify lowercases s and collapses everything that is not [a-z0-9_] into single dashes.
func Slugify(s string) string {
	slug := strings.ToLower(strings.TrimSpace(s))
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	slug = repeatedDash.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// IsValidSlug reports whether s is already in canonical slug form.
func IsValidSlug(s string) bool {
	return validSlugForm.MatchString(s)
}
