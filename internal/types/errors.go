package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout       = errors.New("request timed out")
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrNotFound      = errors.New("element not found")
	ErrUnknownField  = errors.New("unknown field")
	ErrNotStored     = errors.New("snapshot not stored")
	ErrNoAPIKey      = errors.New("missing API key")
)

// FetchError wraps errors that occur during fetching: transport failures,
// timeouts and non-2xx statuses.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ParseError wraps errors that occur during parsing, such as a missing
// table or header.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError reports that the upstream table layout no longer matches the
// expected column schema.
type SchemaError struct {
	Table    string
	Row      int
	Expected int
	Got      int
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema mismatch in table %q row %d: expected %d cells, got %d", e.Table, e.Row, e.Expected, e.Got)
}

// ConfigError reports a missing or invalid setting that disables a feature.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error (%s): %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur in a snapshot backend.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
