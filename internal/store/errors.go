package store

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode classifies store failures for callers and for exit-code mapping.
type ErrorCode string

const (
	// ErrBadRequest indicates a malformed request (HTTP 400).
	ErrBadRequest ErrorCode = "bad_request"
	// ErrUnauthorized indicates authentication is required or failed (HTTP 401).
	ErrUnauthorized ErrorCode = "unauthorized"
	// ErrForbidden indicates the caller lacks permission (HTTP 403).
	ErrForbidden ErrorCode = "forbidden"
	// ErrNotFound indicates the referenced row does not exist (HTTP 404, or a
	// conditional update that matched zero rows).
	ErrNotFound ErrorCode = "not_found"
	// ErrConflict indicates a duplicate-identity conflict (HTTP 409, or a
	// unique-constraint violation surfaced by the store).
	ErrConflict ErrorCode = "conflict"
	// ErrValidation indicates input validation failed (HTTP 422, or rejected
	// before any store call).
	ErrValidation ErrorCode = "validation_failed"
	// ErrRateLimited indicates too many requests (HTTP 429).
	ErrRateLimited ErrorCode = "rate_limited"
	// ErrServerError indicates a store-side failure (HTTP 5xx).
	ErrServerError ErrorCode = "server_error"
	// ErrTimeout indicates the request timed out.
	ErrTimeout ErrorCode = "timeout"
	// ErrUnknown indicates an unclassified error.
	ErrUnknown ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed on retry.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrServerError, ErrTimeout:
		return true
	default:
		return false
	}
}

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	switch statusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404, 406:
		// PostgREST returns 406 for single-row requests matching zero rows.
		return ErrNotFound
	case 409:
		return ErrConflict
	case 422:
		return ErrValidation
	case 429:
		return ErrRateLimited
	default:
		if statusCode >= 500 && statusCode < 600 {
			return ErrServerError
		}
		return ErrUnknown
	}
}

// StoreError is an error response from the hosted store.
type StoreError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
}

func (e *StoreError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("store error (%s, status %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("store error (%s): %s", e.Code, e.Message)
}

// CodeFromError extracts the ErrorCode from an error chain, or ErrUnknown.
func CodeFromError(err error) ErrorCode {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrUnknown
}

// IsNotFound checks whether the error indicates a missing row.
func IsNotFound(err error) bool {
	return CodeFromError(err) == ErrNotFound
}

// IsConflict checks whether the error indicates a duplicate-identity conflict.
func IsConflict(err error) bool {
	return CodeFromError(err) == ErrConflict
}

// IsValidation checks whether the error indicates rejected input.
func IsValidation(err error) bool {
	return CodeFromError(err) == ErrValidation
}

// IsUnauthorized checks whether the error indicates failed authentication.
func IsUnauthorized(err error) bool {
	return CodeFromError(err) == ErrUnauthorized
}

// sanitizeErrorBody extracts a safe message from a store error response
// without exposing tokens or row contents.
func sanitizeErrorBody(body []byte) string {
	var errResp struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Details string `json:"details"`
		Hint    string `json:"hint"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return "store request failed (response body redacted)"
	}
	msg := errResp.Message
	if msg == "" {
		msg = errResp.Error
	}
	if msg == "" {
		return "store request failed (response body redacted)"
	}
	if errResp.Hint != "" {
		return msg + " (hint: " + errResp.Hint + ")"
	}
	return msg
}

// isUniqueViolation reports whether a store error body names a Postgres
// unique-constraint violation (SQLSTATE 23505), which the table API can
// surface with a non-409 status.
func isUniqueViolation(body []byte) bool {
	var errResp struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return false
	}
	return errResp.Code == "23505"
}
