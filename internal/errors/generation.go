package errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindValidation Kind = "validation"
	KindFetch      Kind = "fetch"
	KindConflict   Kind = "conflict"
	KindFileSystem Kind = "filesystem"
	KindCancelled  Kind = "cancelled"
)

// Sentinel returns the sentinel error matching the kind.
func (k Kind) Sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindFetch:
		return ErrFetch
	case KindConflict:
		return ErrConflict
	case KindCancelled:
		return ErrCancelled
	default:
		return ErrFileSystem
	}
}

// GenerationError is the single classified failure returned by the
// generation engine. errors.Is matches both the kind's sentinel and the cause.
type GenerationError struct {
	// Kind is the failure classification.
	Kind Kind

	// Stage is the pipeline stage that failed (e.g. "fetching").
	Stage string

	// Message is a human-readable description.
	Message string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the kind's sentinel and the cause.
func (e *GenerationError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind.Sentinel()}
	}
	return []error{e.Kind.Sentinel(), e.Cause}
}

// Detail converts the error into a DetailError for rendering.
func (e *GenerationError) Detail() *DetailError {
	d := &DetailError{
		Type:    string(e.Kind) + " failed",
		Message: e.Message,
		Hint:    e.Hint,
		Cause:   e,
	}
	if e.Stage != "" {
		d.Context = map[string]string{"Stage": e.Stage}
	}
	if e.Cause != nil {
		d.Message = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return d
}

// New creates a GenerationError of the given kind.
func New(kind Kind, message string, cause error) *GenerationError {
	return &GenerationError{Kind: kind, Message: message, Cause: cause}
}

// WithHint sets the hint and returns the error for chaining.
func (e *GenerationError) WithHint(hint string) *GenerationError {
	e.Hint = hint
	return e
}

// KindOf reports the classification of err. Context cancellation and
// expiry are reported as KindCancelled; unclassified errors fall back to fallback.
func KindOf(err error, fallback Kind) Kind {
	var genErr *GenerationError
	switch {
	case errors.As(err, &genErr):
		return genErr.Kind
	case errors.Is(err, ErrCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrFileSystem):
		return KindFileSystem
	default:
		return fallback
	}
}

// Classify turns any error into a GenerationError. An existing
// GenerationError is returned as-is with its stage filled in.
func Classify(err error, stage string, fallback Kind) *GenerationError {
	if err == nil {
		return nil
	}
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		if genErr.Stage == "" {
			genErr.Stage = stage
		}
		return genErr
	}

	kind := KindOf(err, fallback)
	msg := stage + " failed"
	if kind == KindCancelled {
		msg = "operation cancelled during " + stage
	}
	return &GenerationError{Kind: kind, Stage: stage, Message: msg, Cause: err}
}
