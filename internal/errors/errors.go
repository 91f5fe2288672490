// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ConfigurationError reports bad or conflicting client configuration, such as
// multiple mutually exclusive auth sources or a missing required file. It is
// fatal at setup and never retried.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// NetworkError reports a transport failure or retry exhaustion for a URL.
type NetworkError struct {
	URL      string
	Attempts int
	Status   int
	Err      error
}

func (e *NetworkError) Error() string {
	msg := fmt.Sprintf("download of %s failed", e.URL)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s with status %d", msg, e.Status)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s after %d attempts", msg, e.Attempts)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a malformed JSON, YAML or tabular payload. Offset is
// the byte offset of the failure if the decoder provides one, Line likewise.
// Decode failures are never retried.
type DecodeError struct {
	Format string
	Offset int64
	Line   int
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("malformed %s payload", e.Format)
	if e.Offset > 0 {
		msg = fmt.Sprintf("%s at byte %d", msg, e.Offset)
	} else if e.Line > 0 {
		msg = fmt.Sprintf("%s at line %d", msg, e.Line)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StateError reports a protocol violation by the caller, such as streaming
// before a request has been issued or opening a second cursor over a live
// response. It always indicates a programming error.
type StateError struct {
	Op     string
	Reason string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// CacheMissError reports that a cache-only read found no saved artifact.
type CacheMissError struct {
	Path string
}

func (e *CacheMissError) Error() string {
	return fmt.Sprintf("no saved data at %s", e.Path)
}

// IsConfiguration reports whether err is or wraps a ConfigurationError.
func IsConfiguration(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsNetwork reports whether err is or wraps a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsDecode reports whether err is or wraps a DecodeError.
func IsDecode(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}

// IsState reports whether err is or wraps a StateError.
func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

// IsCacheMiss reports whether err is or wraps a CacheMissError.
func IsCacheMiss(err error) bool {
	var cm *CacheMissError
	return errors.As(err, &cm)
}

// Retrievable reports whether the retriever may substitute fallback data for
// err. Only network and decode failures qualify; state and configuration
// errors propagate unchanged.
func Retrievable(err error) bool {
	return IsNetwork(err) || IsDecode(err)
}
