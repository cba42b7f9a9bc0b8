package security

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// MaxSearchQueryLength bounds free-text filters on list endpoints
const MaxSearchQueryLength = 100

var (
	ErrSearchTooLong      = errors.New("search query too long")
	ErrSearchInvalidChars = errors.New("search query contains invalid characters")
)

// Keywords are matched as whole words so names like "Dropbox" or "Alexandra" pass.
var suspiciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(union|select|insert|update|delete|drop|create|alter|exec|execute)\b`),
	regexp.MustCompile(`(?i)\b(or|and)\s+\d+\s*=\s*\d+`),
	regexp.MustCompile(`(--|/\*|\*/)`),
	regexp.MustCompile(`(?i)\b(waitfor|pg_sleep|benchmark)\b`),
	regexp.MustCompile(`(?i)(<script|javascript:|vbscript:|onload=|onerror=)`),
}

// ValidateSearchQuery trims query and rejects anything that looks like an injection attempt.
// An empty query is valid and means "no filter".
func ValidateSearchQuery(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", nil
	}
	if len(query) > MaxSearchQueryLength {
		return "", ErrSearchTooLong
	}

	for _, pattern := range suspiciousPatterns {
		if pattern.MatchString(query) {
			return "", ErrSearchInvalidChars
		}
	}
	for _, r := range query {
		if !isSearchRune(r) {
			return "", ErrSearchInvalidChars
		}
	}

	return query, nil
}

func isSearchRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', '@', '+', '\'':
		return true
	}
	return false
}

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(query string) string {
	return strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(query)
}
