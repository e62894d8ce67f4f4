// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for the askai commands.
//
// Command handlers return errors; the Handle* wrappers in cli.go display
// them and pick the exit code.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jeranaias/askai/internal/config"
	"github.com/jeranaias/askai/internal/model"
	"github.com/jeranaias/askai/internal/provider"
	"github.com/jeranaias/askai/internal/session"
	"github.com/jeranaias/askai/internal/vault"
)

// =============================================================================
// EXIT CODES - Specific codes for different error categories
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates configuration file or provider settings error
	ExitConfigError = 3
	// ExitAuthError indicates the provider rejected the credentials
	ExitAuthError = 4
	// ExitNetworkError indicates a transport failure talking to a provider
	ExitNetworkError = 5
	// ExitNotFoundError indicates a note or file was not found
	ExitNotFoundError = 7
	// ExitInterrupted indicates the user cancelled the request
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES FOR STRUCTURED ERROR HANDLING
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // Command that failed (e.g., "ask", "config")
	Action  string // Action being performed (e.g., "attach", "set")
	Reason  string // Human-readable reason
	Err     error  // Underlying error (if any)
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation failure for user input.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was provided
	Reason  string // Why validation failed
	Example string // Example of valid value (optional)
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError represents a resource not found error.
type NotFoundError struct {
	Resource string // Type of resource (e.g., "note", "file")
	ID       string // Identifier that was not found
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// reportedError marks an error whose details the command already printed.
// DisplayError skips it; the exit code still follows the wrapped error.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

func reported(err error) error {
	if err == nil {
		return nil
	}
	return &reportedError{err: err}
}

// =============================================================================
// ERROR CONSTRUCTION HELPERS
// =============================================================================

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{
		Command: command,
		Action:  action,
		Reason:  reason,
		Err:     err,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// NewValidationErrorWithExample creates a validation error with an example.
func NewValidationErrorWithExample(field, value, reason, example string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Reason:  reason,
		Example: example,
	}
}

// ErrMissingArgument creates an error for missing required arguments.
func ErrMissingArgument(argName, usage string) error {
	return NewValidationErrorWithExample(argName, "", "required argument missing", usage)
}

// ErrInvalidFormat creates an error for invalid format.
func ErrInvalidFormat(field, value, expected string) error {
	return NewValidationErrorWithExample(field, value, "invalid format", expected)
}

// =============================================================================
// ERROR DISPLAY HELPERS
// =============================================================================

// DisplayError displays an error in a consistent format.
// In JSON mode the error is written to stdout as a JSONResponse.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	var rep *reportedError
	if errors.As(err, &rep) {
		return
	}

	if jsonMode {
		DisplayErrorJSON(err)
		return
	}

	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	if hint := errorHint(err); hint != "" {
		fmt.Fprintln(os.Stderr, DimStyle.Render(hint))
	}
}

// DisplayErrorJSON outputs an error as JSON.
func DisplayErrorJSON(err error) {
	output := map[string]interface{}{
		"error":     err.Error(),
		"success":   false,
		"exit_code": GetExitCode(err),
	}

	var pe *provider.Error
	var ve *ValidationError
	var nf *NotFoundError
	switch {
	case errors.As(err, &pe):
		output["error_type"] = "provider_error"
		output["kind"] = pe.Kind.String()
		output["provider"] = pe.Provider
		if pe.Status != 0 {
			output["status"] = pe.Status
		}
	case errors.As(err, &ve):
		output["error_type"] = "validation_error"
		output["field"] = ve.Field
		output["reason"] = ve.Reason
	case errors.As(err, &nf):
		output["error_type"] = "not_found_error"
		output["resource"] = nf.Resource
		output["id"] = nf.ID
	default:
		output["error_type"] = "generic_error"
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(output)
}

// errorHint suggests the next step for common failures.
func errorHint(err error) string {
	switch {
	case errors.Is(err, provider.ErrInvalidConfiguration):
		return "Check your settings with: askai config show"
	case errors.Is(err, provider.ErrAuthentication):
		return "The provider rejected the API key. Update it with: askai config set <provider>.api_key KEY"
	case errors.Is(err, vault.ErrNoActive), errors.Is(err, session.ErrNoNotes):
		return "Point askai at your notes with: askai config set vault.dir PATH"
	}
	return ""
}

// HandleErrorAndExit displays an error and exits with an appropriate exit
// code. A nil error returns.
func HandleErrorAndExit(err error, jsonMode bool) {
	if err == nil {
		return
	}

	DisplayError(err, jsonMode)
	os.Exit(GetExitCode(err))
}

// GetExitCode determines the appropriate exit code for an error:
//   - ExitUsageError (2): ValidationError, empty input, ambiguous note
//   - ExitConfigError (3): invalid configuration
//   - ExitAuthError (4): provider rejected credentials
//   - ExitNetworkError (5): transport failure
//   - ExitNotFoundError (7): missing note or file
//   - ExitInterrupted (130): cancelled by the user
//   - ExitGeneralError (1): all other errors
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var configErr config.ValidateErrors
	var configFieldErr config.ValidationError

	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, model.ErrEmptyInput),
		errors.Is(err, vault.ErrAmbiguous),
		errors.Is(err, vault.ErrOutsideVault):
		return ExitUsageError
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &configErr),
		errors.As(err, &configFieldErr),
		errors.Is(err, provider.ErrInvalidConfiguration):
		return ExitConfigError
	case errors.Is(err, provider.ErrAuthentication):
		return ExitAuthError
	case errors.Is(err, provider.ErrTransport):
		return ExitNetworkError
	case errors.As(err, &notFoundErr),
		errors.Is(err, vault.ErrNotFound),
		errors.Is(err, vault.ErrNoActive),
		errors.Is(err, os.ErrNotExist):
		return ExitNotFoundError
	}
	return ExitGeneralError
}

// WrapError wraps an error with additional context.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
