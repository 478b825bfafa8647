package cmd

import (
	"errors"

	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
	"github.com/Yrrrrrf/gwa/internal/output"
)

// detailer is implemented by errors that render as a DetailError.
type detailer interface {
	Detail() *oerrors.DetailError
}

// exitWith renders err to stderr and wraps it with its exit code.
func exitWith(err error) error {
	if err == nil {
		return nil
	}
	code := oerrors.ExitCodeFromError(err)

	var (
		d  detailer
		de *oerrors.DetailError
	)
	switch {
	case code == oerrors.ExitCancelled:
		output.Warn("cancelled")
	case errors.As(err, &d) && d.Detail() != nil:
		output.Details(d.Detail().Error())
	case errors.As(err, &de):
		output.Details(de.Error())
	default:
		output.Error(err.Error())
	}

	output.Debug("exiting", "code", code, "reason", oerrors.ExitCodeName(code))
	return &oerrors.ExitError{Err: err, Code: code, Printed: true}
}

// validationExit marks err as a validation failure and renders it.
func validationExit(err error) error {
	if !errors.Is(err, oerrors.ErrValidation) {
		err = &oerrors.DetailError{
			Type:    "validation failed",
			Message: err.Error(),
			Cause:   oerrors.ErrValidation,
		}
	}
	return exitWith(err)
}
