package errors

import "errors"

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates a configuration record failed validation.
	ErrValidation = errors.New("validation error")

	// ErrFetch indicates the template could not be retrieved.
	ErrFetch = errors.New("fetch error")

	// ErrConflict indicates the output directory is not empty and force is off.
	ErrConflict = errors.New("conflict error")

	// ErrFileSystem indicates a local filesystem operation failed.
	ErrFileSystem = errors.New("filesystem error")

	// ErrCancelled indicates the caller aborted the operation.
	ErrCancelled = errors.New("cancelled")
)
