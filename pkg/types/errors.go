// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by the pipeline matches exactly one
// of these with errors.Is.
var (
	// ErrConfiguration covers a missing API key or an invalid flag value.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnsupportedFileType is returned for input extensions that are
	// neither PDF, image, nor a convertible office format.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrConverterUnavailable is returned when no LibreOffice binary can be found.
	ErrConverterUnavailable = errors.New("document converter unavailable")

	// ErrConversionFailed is returned when LibreOffice exits non-zero, times
	// out, or produces no PDF.
	ErrConversionFailed = errors.New("document conversion failed")

	// ErrNetwork is returned when the OCR request cannot be delivered.
	ErrNetwork = errors.New("network error")

	// ErrAPI is returned for a non-2xx response from the OCR API.
	ErrAPI = errors.New("OCR API error")

	// ErrResponseParse is returned for a malformed or inconsistent OCR response.
	ErrResponseParse = errors.New("OCR response parse error")

	// ErrOutputWrite is returned when the Markdown, images, or archive
	// cannot be written.
	ErrOutputWrite = errors.New("output write error")
)

// Error wraps a failure with its category and enough context to diagnose it
// without the source: the operation, a detail string (file path, extension,
// captured converter output), the HTTP status for API errors and the
// underlying cause.
type Error struct {
	// Kind is one of the Err* category sentinels.
	Kind error

	// Op is the operation that failed (e.g. "Classify", "Process").
	Op string

	// Detail is a human-readable description of what went wrong.
	Detail string

	// StatusCode is the HTTP status for ErrAPI, zero otherwise.
	StatusCode int

	// Body is the raw response body for ErrAPI.
	Body string

	// Err is the underlying error, if any.
	Err error
}

// NewError creates an Error of the given kind.
func NewError(kind error, op, detail string, err error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Err: err}
}

// NewAPIError creates an ErrAPI error preserving the status code and body.
func NewAPIError(op string, status int, body string) *Error {
	return &Error{
		Kind:       ErrAPI,
		Op:         op,
		Detail:     fmt.Sprintf("HTTP %d: %s", status, body),
		StatusCode: status,
		Body:       body,
	}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the category and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusCode returns the HTTP status preserved in an ErrAPI error, or 0.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode
	}
	return 0
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrConfiguration):
		return 2
	case errors.Is(err, ErrUnsupportedFileType):
		return 3
	case errors.Is(err, ErrConverterUnavailable), errors.Is(err, ErrConversionFailed):
		return 4
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrAPI), errors.Is(err, ErrResponseParse):
		return 5
	case errors.Is(err, ErrOutputWrite):
		return 6
	default:
		return 1
	}
}
