// ABOUTME: Custom error types for asset fetching, caching and registry maintenance
// ABOUTME: Provides structured errors and the error codes reported by asset reads

package errors

import (
	"errors"
	"fmt"
)

// Error codes carried by asset read results
const (
	CodeNotFound       = "E_NOTFOUND"
	CodeNetwork        = "E_NETWORK"
	CodeInvalidContent = "E_INVALID_CONTENT"
	CodeManifest       = "E_MANIFEST"
	CodeValidation     = "E_INVALID"
	CodeUnknown        = "E_UNKNOWN"
)

// NotFoundError represents an asset with no cached content and no source yielding content
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NetworkError represents a transport failure, a non-2xx status or an
// inactivity timeout abort
type NetworkError struct {
	URL        string
	StatusCode int
	Timeout    bool
	Err        error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("network error fetching %s: no progress before timeout", e.URL)
	case e.StatusCode != 0:
		return fmt.Sprintf("network error fetching %s: status %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("network error fetching %s", e.URL)
}

// Unwrap returns the underlying transport error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// InvalidContentError represents an empty body or an HTML page served in
// place of the expected text
type InvalidContentError struct {
	URL    string
	Reason string
}

// Error implements the error interface
func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("invalid content from %s: %s", e.URL, e.Reason)
}

// ManifestParseError represents a malformed source manifest
type ManifestParseError struct {
	Err error
}

// Error implements the error interface
func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("malformed asset manifest: %v", e.Err)
}

// Unwrap returns the decoding error
func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if an error is a NotFoundError
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// IsValidation checks if an error is a ValidationError
func IsValidation(err error) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr)
}

// IsNetwork checks if an error is a NetworkError
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// IsTimeout checks if an error is a NetworkError caused by the inactivity timeout
func IsTimeout(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr) && netErr.Timeout
}

// IsInvalidContent checks if an error is an InvalidContentError
func IsInvalidContent(err error) bool {
	var contentErr *InvalidContentError
	return errors.As(err, &contentErr)
}

// IsManifestParse checks if an error is a ManifestParseError
func IsManifestParse(err error) bool {
	var manifestErr *ManifestParseError
	return errors.As(err, &manifestErr)
}

// Code maps an error to the code reported in asset read results
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return CodeNotFound
	case IsNetwork(err):
		return CodeNetwork
	case IsInvalidContent(err):
		return CodeInvalidContent
	case IsManifestParse(err):
		return CodeManifest
	case IsValidation(err):
		return CodeValidation
	}
	return CodeUnknown
}

// WrapError wraps an error with additional context
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
