// Package logsanitize provides helpers for sanitizing untrusted values before logging.
package logsanitize

import "strings"

// MaxFieldLen bounds a single sanitized log value. Usernames and form
// fields come straight from the login page and can be arbitrarily long.
const MaxFieldLen = 256

// Sanitize replaces control characters in a log field value with '_'
// (CWE-117) and truncates it to MaxFieldLen bytes.
//
// Stripped ranges:
//   - C0 controls 0x00-0x1F (except horizontal tab 0x09)
//   - DEL 0x7F and C1 controls 0x80-0x9F
func Sanitize(s string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\t' {
			return '_'
		}
		if r >= 0x7f && r <= 0x9f {
			return '_'
		}
		return r
	}, s)
	return clamp(clean, MaxFieldLen)
}

// Mask keeps the first character of an identifier and hides the rest,
// preserving the domain of an email address: "alice@corp.example" ->
// "a****@corp.example".
func Mask(s string) string {
	s = Sanitize(s)
	if s == "" {
		return ""
	}
	local, domain, hasDomain := strings.Cut(s, "@")
	var masked string
	if runes := []rune(local); len(runes) > 0 {
		masked = string(runes[:1]) + strings.Repeat("*", len(runes)-1)
	}
	if hasDomain {
		return masked + "@" + domain
	}
	return masked
}

// clamp cuts s to at most n bytes without splitting a UTF-8 sequence.
func clamp(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
