package conduit

import (
	"errors"
	"fmt"
)

// ErrorCode classifies errors surfaced to callers. Every error that crosses
// the facade boundary carries one of these machine-readable codes.
type ErrorCode string

const (
	ErrorCodeValidation     ErrorCode = "VALIDATION_ERROR"
	ErrorCodeAuth           ErrorCode = "AUTH_ERROR"
	ErrorCodeNetwork        ErrorCode = "NETWORK_ERROR"
	ErrorCodeRemote         ErrorCode = "REMOTE_ERROR"
	ErrorCodeRateLimit      ErrorCode = "RATE_LIMIT_ERROR"
	ErrorCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrorCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"
	ErrorCodeResultTooLarge ErrorCode = "RESULT_TOO_LARGE"
	ErrorCodeCacheInvariant ErrorCode = "CACHE_INVARIANT_VIOLATION"
	ErrorCodeUnknown        ErrorCode = "UNKNOWN_ERROR"
)

// Conduit error codes that indicate bad credentials. These are terminal and
// never retried.
const (
	ConduitErrInvalidAuth    = "ERR-INVALID-AUTH"
	ConduitErrInvalidToken   = "ERR-INVALID-TOKEN"
	ConduitErrInvalidSession = "ERR-INVALID-SESSION"
)

// Static errors for err113 compliance.
var (
	ErrNoMoreItems      = errors.New("no more items")
	ErrConfigRequired   = errors.New("config is required")
	ErrTokenRequired    = errors.New("API token is required")
	ErrSkipTLSOnlyInDev = errors.New("SkipTLSVerify is only allowed in development environments")
)

// ValidationError reports bad caller input. It is raised before any network
// call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}

	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Reason)
}

// AuthError reports a rejected credential. It is terminal and surfaced
// immediately without consuming retry budget.
type AuthError struct {
	ConduitCode string
	Info        string
}

func (e *AuthError) Error() string {
	if e.ConduitCode != "" {
		return fmt.Sprintf("authentication failed (%s): %s", e.ConduitCode, e.Info)
	}

	return fmt.Sprintf("authentication failed: %s", e.Info)
}

// NetworkError reports a transport-level failure (connection reset, timeout,
// DNS). It is transient and eligible for retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// RemoteError reports a status-coded or Conduit-coded failure from the
// remote service. 429 and 5xx are retryable; other statuses are terminal.
type RemoteError struct {
	StatusCode  int
	ConduitCode string
	Info        string
}

func (e *RemoteError) Error() string {
	if e.ConduitCode != "" {
		return fmt.Sprintf("Conduit error %s: %s", e.ConduitCode, e.Info)
	}

	return fmt.Sprintf("remote error: HTTP %d: %s", e.StatusCode, e.Info)
}

// Retryable reports whether the failure is transient.
func (e *RemoteError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// RetryExhaustedError wraps the last observed error after the retry budget
// is consumed.
type RetryExhaustedError struct {
	Attempts int
	Last     error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Last
}

// ResultTooLargeError reports that a full-aggregation fetch exceeded its
// safety cap. Callers should paginate instead.
type ResultTooLargeError struct {
	Cap     int
	Fetched int
}

func (e *ResultTooLargeError) Error() string {
	return fmt.Sprintf("result exceeds safety cap of %d items (fetched %d)", e.Cap, e.Fetched)
}

// CacheInvariantError reports an internal cache consistency failure. It
// indicates a programming defect, not a runtime condition to recover from.
type CacheInvariantError struct {
	Reason string
}

func (e *CacheInvariantError) Error() string {
	return fmt.Sprintf("cache invariant violation: %s", e.Reason)
}

// CodeOf maps an error to its machine-readable code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var (
		validationErr *ValidationError
		authErr       *AuthError
		networkErr    *NetworkError
		remoteErr     *RemoteError
		exhaustedErr  *RetryExhaustedError
		tooLargeErr   *ResultTooLargeError
		invariantErr  *CacheInvariantError
	)

	switch {
	case errors.As(err, &validationErr):
		return ErrorCodeValidation
	case errors.As(err, &authErr):
		return ErrorCodeAuth
	case errors.As(err, &exhaustedErr):
		return ErrorCodeRetryExhausted
	case errors.As(err, &networkErr):
		return ErrorCodeNetwork
	case errors.As(err, &tooLargeErr):
		return ErrorCodeResultTooLarge
	case errors.As(err, &invariantErr):
		return ErrorCodeCacheInvariant
	case errors.As(err, &remoteErr):
		switch {
		case remoteErr.StatusCode == 429:
			return ErrorCodeRateLimit
		case remoteErr.StatusCode == 404:
			return ErrorCodeNotFound
		default:
			return ErrorCodeRemote
		}
	default:
		return ErrorCodeUnknown
	}
}

// SuggestionOf returns a human-actionable suggestion for an error.
func SuggestionOf(err error) string {
	switch CodeOf(err) {
	case ErrorCodeValidation:
		return "Check the request parameters and try again."
	case ErrorCodeAuth:
		return "Verify the API token in your Conduit settings (Settings > Conduit API Tokens)."
	case ErrorCodeNetwork:
		return "Check connectivity to the Conduit server and retry."
	case ErrorCodeRateLimit:
		return "The server is rate limiting requests. Wait before retrying or reduce request frequency."
	case ErrorCodeNotFound:
		return "Verify the object identifier exists and you have permission to view it."
	case ErrorCodeRetryExhausted:
		return "The server did not recover within the retry budget. Retry later or raise RetryMax."
	case ErrorCodeResultTooLarge:
		return "Narrow the search constraints or use cursor pagination instead of fetching everything."
	case ErrorCodeCacheInvariant:
		return "This is an internal defect. Please report it with the request that triggered it."
	case ErrorCodeRemote:
		return "The Conduit server rejected the call. Inspect the error details."
	default:
		return "Retry the operation, and report the error if it persists."
	}
}

// IsRetryable reports whether an error is transient and worth retrying.
func IsRetryable(err error) bool {
	var networkErr *NetworkError
	if errors.As(err, &networkErr) {
		return true
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		return remoteErr.Retryable()
	}

	return false
}

// IsAuthError reports whether an error indicates a rejected credential.
func IsAuthError(err error) bool {
	var authErr *AuthError

	return errors.As(err, &authErr)
}

// IsNotFound reports whether an error indicates a missing object.
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrorCodeNotFound
}
