package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidKind   = errors.New("eventKind must not be empty")
	ErrBatchTooLarge = errors.New("batch exceeds maximum of 1000 notifications")
	ErrBatchEmpty    = errors.New("batch must contain at least one notification")
	ErrQueueFull     = errors.New("queue is at capacity, try again later")
)
