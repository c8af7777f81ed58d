// Package emailutil holds address normalization, validation and display
// masking shared by the suppression, unsubscribe and send paths.
package emailutil

import (
	"regexp"
	"strings"
)

var addressRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Normalize lowercases and trims an address. All storage and lookups go
// through this so the suppression unique constraint is case-insensitive in
// effect.
func Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Valid reports whether the address has plausible mailbox syntax.
func Valid(email string) bool {
	return addressRegex.MatchString(email)
}

// Mask obscures an address for display on unsubscribe pages:
// "john@example.com" → "j***@example.com". Single-character local parts are
// fully masked.
func Mask(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return "***"
	}
	local, rest := email[:at], email[at+1:]
	if len(local) > 1 {
		return local[:1] + "***@" + rest
	}
	return "***@" + rest
}
