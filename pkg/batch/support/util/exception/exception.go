// Package exception defines the error taxonomy used by the taxiweather pipeline.
// Every failure that aborts a run is a *BatchError tagged with a Kind, so callers can
// decide how to report it without matching on message text.
package exception

import (
	"errors"
	"fmt"
)

// Kind classifies a BatchError.
type Kind string

const (
	// KindIO covers missing directories and files, and unreadable inputs.
	KindIO Kind = "IOError"
	// KindFormat covers input files that do not match the expected schema.
	KindFormat Kind = "FormatError"
	// KindPersistence covers failures writing to or reading from the durable store.
	KindPersistence Kind = "PersistenceError"
	// KindConfig covers invalid or incomplete configuration detected at startup.
	KindConfig Kind = "ConfigError"
	// KindUnknown is used when a BatchError is created without a kind.
	KindUnknown Kind = "BatchError"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// BatchError is the error type returned by pipeline components.
type BatchError struct {
	// Module indicates where the error occurred (e.g. "loader", "persister", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// Kind classifies the error.
	Kind Kind
	// OriginalErr is the wrapped cause, if any.
	OriginalErr error
}

// NewBatchError creates a BatchError of the given kind.
func NewBatchError(kind Kind, module, message string, originalErr error) *BatchError {
	if kind == "" {
		kind = KindUnknown
	}
	return &BatchError{
		Module:      module,
		Message:     message,
		Kind:        kind,
		OriginalErr: originalErr,
	}
}

// NewBatchErrorf creates a BatchError with a formatted message.
// When the last argument is an error it becomes the wrapped cause and is not used for formatting.
func NewBatchErrorf(kind Kind, module, format string, a ...interface{}) *BatchError {
	var originalErr error
	if len(a) > 0 {
		if err, ok := a[len(a)-1].(error); ok {
			originalErr = err
			a = a[:len(a)-1]
		}
	}
	return NewBatchError(kind, module, fmt.Sprintf(format, a...), originalErr)
}

// NewIOError creates a KindIO error.
func NewIOError(module, message string, originalErr error) *BatchError {
	return NewBatchError(KindIO, module, message, originalErr)
}

// NewFormatError creates a KindFormat error.
func NewFormatError(module, message string, originalErr error) *BatchError {
	return NewBatchError(KindFormat, module, message, originalErr)
}

// NewPersistenceError creates a KindPersistence error.
func NewPersistenceError(module, message string, originalErr error) *BatchError {
	return NewBatchError(KindPersistence, module, message, originalErr)
}

// NewConfigError creates a KindConfig error.
func NewConfigError(module, message string, originalErr error) *BatchError {
	return NewBatchError(KindConfig, module, message, originalErr)
}

// Error implements the error interface as "[module] Kind: message: cause".
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Module, e.Kind, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Module, e.Kind, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is a BatchError of the same kind with an empty or equal module.
// It lets callers write errors.Is(err, &BatchError{Kind: KindIO}).
func (e *BatchError) Is(target error) bool {
	t, ok := target.(*BatchError)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Module == "" || t.Module == e.Module
}

// IsBatchError reports whether err or anything it wraps is a *BatchError.
func IsBatchError(err error) bool {
	var be *BatchError
	return errors.As(err, &be)
}

// IsKind reports whether any BatchError in err's chain has the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind || errors.Is(err, &BatchError{Kind: kind})
}

// KindOf returns the kind of the outermost BatchError in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() for other errors.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var be *BatchError
	if errors.As(err, &be) {
		return be.Message
	}
	return err.Error()
}
