package content

import (
	"strconv"
	"strings"
)

// ExcerptLength is the number of characters kept in a generated excerpt.
const ExcerptLength = 150

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// UniqueSlug returns base, or base with the first free "-N" suffix, such
// that taken reports false. An empty base becomes "post".
func UniqueSlug(base string, taken func(string) bool) string {
	if base == "" {
		base = "post"
	}
	if !taken(base) {
		return base
	}
	for n := 2; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// Excerpt returns content unchanged when it is at most ExcerptLength
// characters, otherwise its first ExcerptLength characters and "...".
func Excerpt(content string) string {
	r := []rune(content)
	if len(r) <= ExcerptLength {
		return content
	}
	return string(r[:ExcerptLength]) + "..."
}
