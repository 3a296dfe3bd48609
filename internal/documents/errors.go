package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence wraps rejected storage writes so callers can tell them
	// apart from lookups that simply found nothing.
	ErrPersistence = errors.New("persistence failure")
)
