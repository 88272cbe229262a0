package contact

import "regexp"

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// spamPatterns flag drug and gambling keywords, embedded URLs and long
// digit runs (phone numbers and the like).
var spamPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)viagra`),
	regexp.MustCompile(`(?i)casino`),
	regexp.MustCompile(`(?i)lottery`),
	regexp.MustCompile(`\b(?:https?://|www\.)\S+`),
	regexp.MustCompile(`\d{3,}`),
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// LooksLikeSpam reports whether any field matches a spam pattern.
func LooksLikeSpam(fields ...string) bool {
	for _, p := range spamPatterns {
		for _, f := range fields {
			if p.MatchString(f) {
				return true
			}
		}
	}
	return false
}
