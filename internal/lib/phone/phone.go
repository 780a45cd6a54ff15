// Package phone validates, normalises and formats customer phone numbers.
// Display formatting follows Saudi conventions.
package phone

import (
	"regexp"
	"strings"
)

var pattern = regexp.MustCompile(`^[\+]?[0-9\s\-\(\)]{7,20}$`)

// Valid reports whether s looks like a phone number: an optional leading
// plus followed by 7 to 20 digits, spaces, dashes or parentheses.
func Valid(s string) bool {
	return pattern.MatchString(strings.TrimSpace(s))
}

// Digits returns only the decimal digits of s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize strips everything but digits, keeping one leading plus.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		return "+" + Digits(s[1:])
	}
	return Digits(s)
}

// Format renders a number for display. Local mobile numbers become
// "05X XXX XXXX" and international Saudi numbers "+966 XX XXX XXXX".
// Other numbers of at least 7 digits are split from the right, anything
// shorter is returned unchanged.
func Format(s string) string {
	if s == "" {
		return ""
	}
	d := Digits(s)

	switch {
	case len(d) == 10 && strings.HasPrefix(d, "05"):
		return d[:3] + " " + d[3:6] + " " + d[6:]
	case len(d) == 12 && strings.HasPrefix(d, "966"):
		return "+" + d[:3] + " " + d[3:5] + " " + d[5:8] + " " + d[8:]
	case len(d) >= 7:
		local := d
		country := ""
		if len(d) > 10 {
			country, local = d[:len(d)-10], d[len(d)-10:]
		}
		out := local[:3] + " " + local[3:6] + " " + local[6:]
		if country != "" {
			return "+" + country + " " + out
		}
		return out
	default:
		return s
	}
}
