package mirror

import (
	"errors"
	"fmt"
)

var (
	ErrSessionUnfinished = errors.New("mirror: an unfinished session exists, resume or abandon it first")
	ErrSessionAborted    = errors.New("mirror: session was aborted and cannot be resumed")
	ErrNothingToResume   = errors.New("mirror: no unfinished session to resume")
	ErrNoHash            = errors.New("mirror: no content hash available")
	ErrEmptyPrefixList   = errors.New("mirror: prefix list is empty")
)

// TransientError wraps remote failures worth retrying: network errors,
// timeouts, rate limits.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient: %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps remote failures no retry will fix: quota, permission,
// not-found.
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %s: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error { return e.Err }

// ConflictError reports destination state that diverged from what the plan
// assumed. The entry is failed, never silently overwritten.
type ConflictError struct {
	Path   string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict at %s: %s", e.Path, e.Reason)
}

// ConfigError reports invalid user input detected before any mutating action.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// Transient wraps err as retryable.
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// Permanent wraps err as non-retryable.
func Permanent(op string, err error) error {
	return &PermanentError{Op: op, Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsPermanent reports whether err is a non-retryable remote failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsConflict reports whether err is a destination state conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
