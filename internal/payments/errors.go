package payments

import "errors"

var (
	// ErrNotFound indicates the payment row does not exist.
	ErrNotFound = errors.New("payment not found")
	// ErrAnalysisNotFound indicates the referenced analysis does not exist.
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrAlreadyPaid indicates the analysis has already been unlocked.
	ErrAlreadyPaid = errors.New("analysis is already paid")
	// ErrNotCompleted indicates the analysis has not finished yet.
	ErrNotCompleted = errors.New("analysis is not completed")
	// ErrInvalidSignature indicates the webhook signature check failed.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidPayload indicates the webhook body could not be decoded.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)
