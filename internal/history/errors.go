package history

import "errors"

// Domain errors for the history repository.
var (
	// ErrDeviceIDRequired is returned when an operation has no device ID.
	ErrDeviceIDRequired = errors.New("history: device id is required")

	// ErrInvalidRetention is returned when a prune window is not positive.
	ErrInvalidRetention = errors.New("history: retention must be positive")
)
