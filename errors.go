package protected

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrMissingGroup indicates a token pattern lacks a required named group.
	ErrMissingGroup = errors.New("missing named group")

	// ErrMissingPlaceholder indicates the replacement template lacks ${data}.
	ErrMissingPlaceholder = errors.New("missing placeholder")

	// ErrMissingProvider indicates no protect provider was configured.
	ErrMissingProvider = errors.New("missing protect provider")

	// ErrInvalidPattern indicates a token pattern failed to compile.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrInvalidConfig indicates an operation ran on an incomplete configuration.
	ErrInvalidConfig = errors.New("invalid protect configuration")

	// ErrEncrypt indicates encryption of a value failed.
	ErrEncrypt = errors.New("encrypt failed")

	// ErrDecrypt indicates decryption of a value failed.
	ErrDecrypt = errors.New("decrypt failed")

	// ErrDeriveProvider indicates a sub-purpose provider could not be derived.
	ErrDeriveProvider = errors.New("derive sub-provider failed")

	// ErrNoSource indicates a per-source override was given before any source.
	ErrNoSource = errors.New("no configuration source to override")

	// ErrReadFile indicates a file could not be read.
	ErrReadFile = errors.New("read file failed")

	// ErrWriteFile indicates a file or its backup could not be written.
	ErrWriteFile = errors.New("write file failed")

	// ErrProcessFile indicates a file processor failed on a file's content.
	ErrProcessFile = errors.New("process file failed")
)

// ConfigError represents a protect configuration error.
// It wraps a sentinel error with the field and pattern involved.
type ConfigError struct {
	Err     error  // Underlying sentinel error (ErrMissingGroup, etc.)
	Field   string // Configuration field that is invalid
	Pattern string // Pattern or template text, when relevant
}

func (e *ConfigError) Error() string {
	if e.Field != "" && e.Pattern != "" {
		return fmt.Sprintf("%s in %s %q", e.Err.Error(), e.Field, e.Pattern)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (%s)", e.Err.Error(), e.Field)
	}
	return e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// TransformError represents a failure protecting or unprotecting a value.
type TransformError struct {
	Err       error  // Underlying sentinel error (ErrEncrypt, ErrDecrypt)
	Key       string // Configuration key, when known
	Operation string // encrypt or decrypt
	Cause     error  // Original error from the provider
}

func (e *TransformError) Error() string {
	msg := e.Operation
	if e.Key != "" {
		msg = fmt.Sprintf("%s key %s", e.Operation, e.Key)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the sentinel and the provider error.
func (e *TransformError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// FileError represents a failure on one file of a protect sweep.
type FileError struct {
	Err   error  // Underlying sentinel error (ErrReadFile, ErrWriteFile, ErrProcessFile)
	Path  string // File path
	Cause error  // Original error
}

func (e *FileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", e.Err.Error(), e.Path, e.Cause)
	}
	return fmt.Sprintf("%s %s", e.Err.Error(), e.Path)
}

func (e *FileError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// newConfigError creates a ConfigError.
func newConfigError(sentinel error, field, pattern string) error {
	return &ConfigError{
		Err:     sentinel,
		Field:   field,
		Pattern: pattern,
	}
}

// newTransformError creates a TransformError for value transformation failures.
func newTransformError(sentinel error, operation, key string, cause error) error {
	return &TransformError{
		Err:       sentinel,
		Key:       key,
		Operation: operation,
		Cause:     cause,
	}
}

// NewFileError creates a FileError. File processing packages use it to
// report per-file failures.
func NewFileError(sentinel error, path string, cause error) error {
	return &FileError{
		Err:   sentinel,
		Path:  path,
		Cause: cause,
	}
}
