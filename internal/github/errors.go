package github

import "errors"

var (
	// ErrNotFound indicates the requested user or resource does not exist.
	ErrNotFound = errors.New("github: not found")
	// ErrRateLimited indicates the GitHub API rejected the call for quota.
	ErrRateLimited = errors.New("github: rate limit exceeded")
)
