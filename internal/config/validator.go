package config

import (
	"fmt"
	"regexp"
	"strings"

	oerrors "github.com/Yrrrrrf/gwa/internal/errors"
)

// MaxProjectNameLength bounds project names.
const MaxProjectNameLength = 100

var (
	// projectNameRegex matches names usable as a directory and package name.
	projectNameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

	// paramKeyRegex matches keys that can appear inside a {{ }} token.
	paramKeyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrValidation.
func (e *ValidationError) Unwrap() error {
	return oerrors.ErrValidation
}

// Detail converts the error into a DetailError for rendering.
func (e *ValidationError) Detail() *oerrors.DetailError {
	return &oerrors.DetailError{
		Type:    "validation failed",
		Message: e.Message,
		Field:   e.Field,
		Cause:   e,
	}
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString("config validation failed:\n")
	for _, err := range e {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", err.Field, err.Message))
	}
	return sb.String()
}

// Unwrap lets errors.Is match ErrValidation.
func (e ValidationErrors) Unwrap() error {
	return oerrors.ErrValidation
}

// Detail converts the first failure into a DetailError for rendering.
func (e ValidationErrors) Detail() *oerrors.DetailError {
	if len(e) == 0 {
		return nil
	}
	msg := e[0].Message
	if len(e) > 1 {
		msg = fmt.Sprintf("%s (and %d more)", msg, len(e)-1)
	}
	return &oerrors.DetailError{
		Type:    "validation failed",
		Message: msg,
		Field:   e[0].Field,
		Cause:   e,
	}
}

// ValidateProjectName checks that name is usable as a project name.
func ValidateProjectName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Field: "project_name", Message: "must not be empty"}
	case len(name) > MaxProjectNameLength:
		return &ValidationError{
			Field:   "project_name",
			Message: fmt.Sprintf("must be at most %d characters", MaxProjectNameLength),
		}
	case !projectNameRegex.MatchString(name):
		return &ValidationError{
			Field:   "project_name",
			Message: "must start with a letter and contain only letters, digits, '-' and '_'",
		}
	}
	return nil
}

// ValidateParamKey checks that key can be referenced by a placeholder.
func ValidateParamKey(key string) error {
	if !paramKeyRegex.MatchString(key) {
		return &ValidationError{
			Field:   "additional_params." + key,
			Message: "key must start with a letter or '_' and contain only letters, digits, '_', '.' and '-'",
		}
	}
	return nil
}

// ValidateProjectConfig checks every field of cfg and returns all failures.
func ValidateProjectConfig(cfg *ProjectConfig) error {
	var errs ValidationErrors

	if err := ValidateProjectName(cfg.ProjectName); err != nil {
		errs = append(errs, *err.(*ValidationError))
	}

	errs = appendLocatorErrors(errs, "template_url", cfg.TemplateURL, true)
	errs = appendLocatorErrors(errs, "template_ref", cfg.TemplateRef, false)

	if strings.TrimSpace(cfg.OutputDir) == "" {
		errs = append(errs, ValidationError{Field: "output_dir", Message: "must not be empty"})
	}

	if cfg.CloneDepth < 0 {
		errs = append(errs, ValidationError{Field: "clone_depth", Message: "must be a positive integer"})
	}

	for key := range cfg.AdditionalParams {
		if err := ValidateParamKey(key); err != nil {
			errs = append(errs, *err.(*ValidationError))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateInvariants checks only what generation relies on regardless of
// where cfg came from: a well-formed project name, locators that cannot be
// read as git options, and a named output directory. Free-form fields such
// as additional parameter keys are left to the caller.
func ValidateInvariants(cfg *ProjectConfig) error {
	var errs ValidationErrors

	if err := ValidateProjectName(cfg.ProjectName); err != nil {
		errs = append(errs, *err.(*ValidationError))
	}
	errs = appendLocatorErrors(errs, "template_url", cfg.TemplateURL, true)
	errs = appendLocatorErrors(errs, "template_ref", cfg.TemplateRef, false)
	if strings.TrimSpace(cfg.OutputDir) == "" {
		errs = append(errs, ValidationError{Field: "output_dir", Message: "must not be empty"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate checks user defaults loaded from the config file.
func (c *Config) Validate() error {
	var errs ValidationErrors

	if c.CloneDepth < 0 {
		errs = append(errs, ValidationError{Field: "clone_depth", Message: "must not be negative"})
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, ValidationError{Field: "fetch_timeout", Message: "must not be negative"})
	}
	errs = appendLocatorErrors(errs, "template_url", c.TemplateURL, false)
	errs = appendLocatorErrors(errs, "template_ref", c.TemplateRef, false)
	for key := range c.Params {
		if err := ValidateParamKey(key); err != nil {
			errs = append(errs, *err.(*ValidationError))
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func appendLocatorErrors(errs ValidationErrors, field, value string, required bool) ValidationErrors {
	switch {
	case strings.TrimSpace(value) == "":
		if required {
			errs = append(errs, ValidationError{Field: field, Message: "must not be empty"})
		}
	case strings.HasPrefix(value, "-"):
		errs = append(errs, ValidationError{Field: field, Message: "must not start with '-'"})
	}
	return errs
}
