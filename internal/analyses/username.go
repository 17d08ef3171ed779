package analyses

import (
	"regexp"
	"strings"
)

const usernameMaxLen = 39

// GitHub login rules: alphanumeric with single interior hyphens.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9](?:-?[a-zA-Z0-9]){0,38}$`)

// NormalizeUsername validates a GitHub username and lowercases it for
// storage. Returns ErrInvalidUsername when the input is not a legal login.
func NormalizeUsername(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > usernameMaxLen {
		return "", ErrInvalidUsername
	}
	if !usernamePattern.MatchString(trimmed) {
		return "", ErrInvalidUsername
	}
	return strings.ToLower(trimmed), nil
}
