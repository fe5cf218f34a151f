package identity

import (
	"regexp"
	"strings"
)

const (
	MinUsernameLen = 3
	MaxUsernameLen = 255
)

var usernameRE = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// ValidUsername reports whether s is 3..255 ASCII letters or digits.
func ValidUsername(s string) bool {
	return len(s) >= MinUsernameLen && len(s) <= MaxUsernameLen && usernameRE.MatchString(s)
}

// CleanUsername trims surrounding whitespace. Usernames are otherwise case-sensitive.
func CleanUsername(s string) string {
	return strings.TrimSpace(s)
}
