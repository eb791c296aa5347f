package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors that can be used with errors.Is() for error type checking
var (
	// ErrLockContention indicates the database is locked by another live process
	ErrLockContention = errors.New("database is locked by another process")

	// ErrAlreadyOpen indicates the current process already holds the lock
	ErrAlreadyOpen = errors.New("database is already open in this process")

	// ErrStaleLock indicates a lock record left behind by a dead process
	ErrStaleLock = errors.New("stale lock detected")

	// ErrLockIO indicates the lock metadata file could not be read or written
	ErrLockIO = errors.New("lock metadata I/O failure")

	// ErrAlreadyReleased indicates a lock guard was released more than once
	ErrAlreadyReleased = errors.New("lock guard already released")

	// ErrWouldBlock indicates the advisory lock is held by another process
	ErrWouldBlock = errors.New("advisory lock held by another process")

	// ErrInvalidConfiguration indicates an invalid or conflicting user configuration
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// New creates a new error with the given message.
// This is a convenience function that wraps errors.New.
func New(message string) error {
	return errors.New(message)
}

// Errorf creates a new formatted error.
// This is a convenience function that wraps fmt.Errorf.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

// Wrap wraps an error with a message for better context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message for better context.
func Wrapf(err error, format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether target is in err's chain.
// This is a convenience function that wraps errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience function that wraps errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join combines multiple errors into one.
// This is a convenience function that wraps errors.Join.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// LockError represents an error that occurred while arbitrating access to a
// database file. It includes the lock metadata path, the holder PID if known,
// and the underlying error.
type LockError struct {
	LockFile string
	PID      int
	Err      error
}

// Error implements the error interface with details about the lock file and process.
func (e *LockError) Error() string {
	if e.PID > 0 {
		return fmt.Sprintf("lock error with file %s (PID: %d): %v", e.LockFile, e.PID, e.Err)
	}
	return fmt.Sprintf("lock error with file %s: %v", e.LockFile, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *LockError) Unwrap() error {
	return e.Err
}

// NewLockError creates a new LockError with the given parameters.
func NewLockError(lockFile string, pid int, err error) *LockError {
	return &LockError{
		LockFile: lockFile,
		PID:      pid,
		Err:      err,
	}
}

// FormatError represents an error reported by the external container format
// library. It is kept distinct from LockError so callers can render
// "database is open elsewhere" differently from "database is corrupt".
type FormatError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface with details about the failed operation.
func (e *FormatError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("format %s failed for %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("format %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// NewFormatError creates a new FormatError with the given parameters.
func NewFormatError(op, path string, err error) *FormatError {
	return &FormatError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// ConfigError represents an error in the application configuration.
// It includes the parameter name, its value if available, and the underlying error.
type ConfigError struct {
	Parameter string
	Value     interface{}
	Err       error
}

// Error implements the error interface with details about the invalid configuration.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("configuration error for %s = %v: %v", e.Parameter, e.Value, e.Err)
	}
	return fmt.Sprintf("configuration error for %s: %v", e.Parameter, e.Err)
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError with the given parameters.
func NewConfigError(parameter string, value interface{}, err error) *ConfigError {
	return &ConfigError{
		Parameter: parameter,
		Value:     value,
		Err:       err,
	}
}
