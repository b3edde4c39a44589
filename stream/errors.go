package stream

import (
	"errors"
	"fmt"
	"time"
)

// ErrAlreadyLocked is returned by zero-timeout opens and writes when another
// process (or another handle in this one) holds a conflicting advisory lock.
var ErrAlreadyLocked = errors.New("file is already locked by another holder")

// LockTimeoutError is returned when a bounded-retry lock acquisition did not
// succeed within the configured timeout.
type LockTimeoutError struct {
	Timeout time.Duration
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("failed to acquire lock within %s", e.Timeout)
}

// DecodeError wraps a per-line decode failure during stream reading. It is
// surfaced as an error item in the sequence; the line it covers is skipped
// but the sequence itself continues, so the caller decides whether a
// malformed record is fatal.
type DecodeError struct {
	// Line is the 1-based physical line number of the malformed record.
	Line int

	// Err is the underlying decode failure.
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("line %d: decode fact: %v", e.Line, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsLockContention reports whether err is either form of lock-acquisition
// failure, immediate or timed out.
func IsLockContention(err error) bool {
	var lt *LockTimeoutError
	return errors.Is(err, ErrAlreadyLocked) || errors.As(err, &lt)
}
