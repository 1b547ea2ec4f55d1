package kv

import "errors"

// Domain errors for key-value operations.
var (
	// ErrInvalidKey is returned when a key is invalid (e.g., empty).
	ErrInvalidKey = errors.New("invalid storage key")

	// ErrConnectionFailed is returned when connection to the backend fails.
	ErrConnectionFailed = errors.New("storage connection failed")

	// ErrOperationTimeout is returned when a storage operation times out.
	ErrOperationTimeout = errors.New("storage operation timeout")

	// ErrUnknownDriver is returned when no backend exists for a driver name.
	ErrUnknownDriver = errors.New("unknown storage driver")
)
