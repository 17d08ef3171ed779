package analyses

import "errors"

var (
	ErrNotFound        = errors.New("analysis not found")
	ErrInvalidUsername = errors.New("invalid github username")
	ErrAlreadyPaid     = errors.New("analysis already paid")
)

const (
	ErrorCodeGitHubNotFound    = "GITHUB_USER_NOT_FOUND"
	ErrorCodeGitHubRateLimited = "GITHUB_RATE_LIMITED"
	ErrorCodeAITimeout         = "AI_TIMEOUT"
	ErrorCodeAIError           = "AI_ERROR"
	ErrorCodeAIInvalidOutput   = "AI_INVALID_OUTPUT"
	ErrorCodeStorage           = "STORAGE_ERROR"
	ErrorCodeInternal          = "INTERNAL_ERROR"
)
