package backend

import (
	"context"
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
}

// TransportError means the request never produced an HTTP response.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a 2xx response whose body could not be read, parsed or validated.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode response %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// DownloadError is a failed export download. The body is never parsed.
type DownloadError struct {
	Filename   string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to download %s: %v", e.Filename, e.Err)
	}
	return fmt.Sprintf("failed to download %s: status %d", e.Filename, e.StatusCode)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// ValidationError is raised before a request is sent.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrorMessage turns any client error into the single line shown to operators.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var validationErr *ValidationError
	var apiErr *APIError
	var downloadErr *DownloadError
	var decodeErr *DecodeError
	var transportErr *TransportError

	switch {
	case errors.As(err, &validationErr):
		return validationErr.Message
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.As(err, &downloadErr):
		return fmt.Sprintf("Failed to download %s", downloadErr.Filename)
	case errors.As(err, &decodeErr):
		return fmt.Sprintf("Invalid response from backend (%s)", decodeErr.Path)
	case errors.Is(err, context.Canceled):
		return "Request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Backend did not respond in time"
	case errors.As(err, &transportErr):
		return fmt.Sprintf("Backend unreachable: %v", transportErr.Err)
	default:
		return err.Error()
	}
}
