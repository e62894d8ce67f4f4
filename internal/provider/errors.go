// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind categorizes a provider failure so callers can tell "fix your
// key" apart from "try again".
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidConfiguration
	KindTransport
	KindAuthentication
	KindMalformedResponse
)

// String returns a human-readable kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidConfiguration:
		return "invalid configuration"
	case KindTransport:
		return "transport failure"
	case KindAuthentication:
		return "authentication failure"
	case KindMalformedResponse:
		return "malformed response"
	default:
		return "unknown"
	}
}

// =============================================================================
// ERROR TYPE
// =============================================================================

// Error is a provider failure tagged with its kind.
type Error struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Message  string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Provider == "" && t.Message == ""
}

// Sentinels for errors.Is.
var (
	ErrInvalidConfiguration = &Error{Kind: KindInvalidConfiguration}
	ErrTransport            = &Error{Kind: KindTransport}
	ErrAuthentication       = &Error{Kind: KindAuthentication}
	ErrMalformedResponse    = &Error{Kind: KindMalformedResponse}
)

// KindOf returns the kind of err, or KindUnknown.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// Missing reports a required configuration field that is not set.
func Missing(provider, field string) error {
	return &Error{
		Kind:     KindInvalidConfiguration,
		Provider: provider,
		Message:  field + " is not set",
	}
}

// Invalid reports a configuration field with an unusable value.
func Invalid(provider, field, reason string) error {
	return &Error{
		Kind:     KindInvalidConfiguration,
		Provider: provider,
		Message:  field + ": " + reason,
	}
}

// Malformed reports a response that does not have the expected shape.
func Malformed(provider, message string, cause error) error {
	return &Error{
		Kind:     KindMalformedResponse,
		Provider: provider,
		Message:  message,
		Cause:    cause,
	}
}

// KindForStatus maps an HTTP status to an error kind.
func KindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuthentication
	default:
		return KindTransport
	}
}

// maxErrorBody bounds how much of a response body ends up in a message.
const maxErrorBody = 200

// StatusError converts a non-2xx response into an Error. The message is taken
// from the common JSON error shapes when present.
func StatusError(provider string, status int, body []byte) error {
	return &Error{
		Kind:     KindForStatus(status),
		Provider: provider,
		Status:   status,
		Message:  ErrorMessage(body),
	}
}

// ErrorMessage extracts a message from an error body, falling back to the
// truncated raw text.
func ErrorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, path := range []string{"error.message", "errors.0.message", "0.error.message", "message", "error"} {
			if r := gjson.GetBytes(body, path); r.Exists() && r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}

// Classify wraps a low-level error. Existing provider errors pass through,
// decode failures become malformed responses, and everything else is a
// transport failure.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindMalformedResponse, Provider: provider, Cause: err}
	}

	msg := ""
	if errors.Is(err, context.Canceled) {
		msg = "cancelled"
	} else if errors.Is(err, context.DeadlineExceeded) {
		msg = "timed out"
	}
	return &Error{Kind: KindTransport, Provider: provider, Message: msg, Cause: err}
}
