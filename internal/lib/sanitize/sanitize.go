// Package sanitize cleans free-text form input before it is stored.
//
// Text strips every HTML element through a strict bluemonday policy, so the
// stored value is plain text that templates escape again on output.
package sanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxLength is the rune limit applied by Text.
const DefaultMaxLength = 1000

// Sanitizer strips markup from user input. It is safe for concurrent use.
type Sanitizer struct {
	policy *bluemonday.Policy
	maxLen int
}

// New returns a Sanitizer that keeps at most maxLen runes. A non-positive
// maxLen selects DefaultMaxLength.
func New(maxLen int) *Sanitizer {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	return &Sanitizer{
		policy: bluemonday.StrictPolicy(),
		maxLen: maxLen,
	}
}

// Text removes markup, collapses runs of whitespace and truncates.
func (s *Sanitizer) Text(in string) string {
	if in == "" {
		return ""
	}
	out := html.UnescapeString(s.policy.Sanitize(in))
	out = strings.Join(strings.Fields(out), " ")
	return truncate(out, s.maxLen)
}

// Email lower-cases and trims an address and strips markup.
func (s *Sanitizer) Email(in string) string {
	return strings.ToLower(s.Text(in))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
