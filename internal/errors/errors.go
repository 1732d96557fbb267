// Package errors provides the structured error type used across safesearch.
// Errors carry a stable code, category, and optional user-facing suggestion
// so boundary layers can log and present them consistently.
package errors

import (
	"fmt"
)

// SafeError is the structured error type for safesearch.
type SafeError struct {
	// Code is the unique error code (e.g. "ERR_101_CORPUS_UNREADABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Corpus, Embed, Index, Config, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error, if any.
	Cause error

	// Retryable indicates whether the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *SafeError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SafeError) Unwrap() error {
	return e.Cause
}

// Is matches SafeErrors by code so errors.Is works across wrap layers.
func (e *SafeError) Is(target error) bool {
	if t, ok := target.(*SafeError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *SafeError) WithDetail(key, value string) *SafeError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *SafeError) WithSuggestion(suggestion string) *SafeError {
	e.Suggestion = suggestion
	return e
}

// New creates a SafeError with the given code and message. Category,
// severity, and the retryable flag are derived from the code.
func New(code string, message string, cause error) *SafeError {
	return &SafeError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SafeError from an existing error.
func Wrap(code string, err error) *SafeError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// CorpusError creates a corpus-load error. Corpus failures are fatal at
// initialization: no search is possible without a corpus.
func CorpusError(message string, cause error) *SafeError {
	return New(ErrCodeCorpusUnreadable, message, cause)
}

// EmbedError creates an embedding-collaborator error. These are recovered
// at the query level by degrading to sparse-only retrieval.
func EmbedError(message string, cause error) *SafeError {
	return New(ErrCodeEmbedUnavailable, message, cause)
}

// IndexError creates an index build/search error.
func IndexError(message string, cause error) *SafeError {
	return New(ErrCodeIndexFailure, message, cause)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *SafeError {
	return New(ErrCodeConfigInvalid, message, cause)
}
