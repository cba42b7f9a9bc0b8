package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
		err      error
	}{
		{name: "empty", query: "", expected: ""},
		{name: "only spaces", query: "   ", expected: ""},
		{name: "simple", query: "john", expected: "john"},
		{name: "trimmed", query: "  john doe  ", expected: "john doe"},
		{name: "email", query: "john.doe+test@example.com", expected: "john.doe+test@example.com"},
		{name: "apostrophe in name", query: "O'Brien", expected: "O'Brien"},
		{name: "keyword inside word", query: "Dropbox", expected: "Dropbox"},
		{name: "and inside word", query: "Alexandra", expected: "Alexandra"},
		{name: "too long", query: strings.Repeat("a", MaxSearchQueryLength+1), err: ErrSearchTooLong},
		{name: "union select", query: "john UNION SELECT password", err: ErrSearchInvalidChars},
		{name: "tautology", query: "x or 1=1", err: ErrSearchInvalidChars},
		{name: "comment", query: "john --", err: ErrSearchInvalidChars},
		{name: "script tag", query: "<script>alert(1)</script>", err: ErrSearchInvalidChars},
		{name: "semicolon", query: "john;doe", err: ErrSearchInvalidChars},
		{name: "percent", query: "50%", err: ErrSearchInvalidChars},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSearchQuery(tt.query)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "", EscapeLike(""))
	assert.Equal(t, "john", EscapeLike("john"))
	assert.Equal(t, `john\_doe`, EscapeLike("john_doe"))
	assert.Equal(t, `\%john\%`, EscapeLike("%john%"))
	assert.Equal(t, `a\\b`, EscapeLike(`a\b`))
}

func TestValidatePassword(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("short1"), ErrPasswordTooShort)
	assert.ErrorIs(t, ValidatePassword("onlyletters"), ErrPasswordTooWeak)
	assert.ErrorIs(t, ValidatePassword("1234567890"), ErrPasswordTooWeak)
	assert.NoError(t, ValidatePassword("s3cretpass"))
}

func BenchmarkValidateSearchQuery(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = ValidateSearchQuery("john doe example")
	}
}
