package errors

import (
	"errors"
)

// Exit codes returned by the gwa binary.
const (
	// ExitSuccess indicates the command completed successfully, warnings included.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitValidationError indicates the configuration was rejected.
	ExitValidationError = 2

	// ExitFetchError indicates the template could not be retrieved.
	ExitFetchError = 3

	// ExitConflictError indicates the output directory is not empty.
	ExitConflictError = 4

	// ExitFileSystemError indicates a local filesystem failure.
	ExitFileSystemError = 5

	// ExitCancelled indicates the user aborted (128 + SIGINT).
	ExitCancelled = 130
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int

	// Printed is set when the command layer has already rendered Err.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return ExitCodeForKind(genErr.Kind)
	}

	switch {
	case errors.Is(err, ErrCancelled):
		return ExitCancelled
	case errors.Is(err, ErrValidation):
		return ExitValidationError
	case errors.Is(err, ErrFetch):
		return ExitFetchError
	case errors.Is(err, ErrConflict):
		return ExitConflictError
	case errors.Is(err, ErrFileSystem):
		return ExitFileSystemError
	default:
		return ExitGeneralError
	}
}

// ExitCodeForKind maps a failure kind to its exit code.
func ExitCodeForKind(k Kind) int {
	switch k {
	case KindValidation:
		return ExitValidationError
	case KindFetch:
		return ExitFetchError
	case KindConflict:
		return ExitConflictError
	case KindFileSystem:
		return ExitFileSystemError
	case KindCancelled:
		return ExitCancelled
	default:
		return ExitGeneralError
	}
}

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitValidationError:
		return "Validation Error"
	case ExitFetchError:
		return "Fetch Error"
	case ExitConflictError:
		return "Conflict"
	case ExitFileSystemError:
		return "Filesystem Error"
	case ExitCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}
