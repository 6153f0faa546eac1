package errors

import (
	"errors"
	"fmt"
)

// Common error types for categorization and handling

var (
	// ErrEmptyQuery indicates the query normalized to an empty string
	ErrEmptyQuery = errors.New("empty query")

	// ErrInvalidInput indicates invalid user input
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCorpus indicates a corpus file failed schema validation
	ErrInvalidCorpus = errors.New("invalid corpus")

	// ErrIndexUnavailable indicates a corpus could not be loaded or indexed
	ErrIndexUnavailable = errors.New("index unavailable")

	// ErrGeneration indicates the generation service failed or timed out
	ErrGeneration = errors.New("generation failed")
)

// WrapError wraps an error with context message and stack
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapErrorf wraps an error with formatted context message
func WrapErrorf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Mark joins a sentinel onto err so both match errors.Is.
func Mark(err error, sentinel error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

// IsEmptyQuery checks if error is an empty query error
func IsEmptyQuery(err error) bool {
	return errors.Is(err, ErrEmptyQuery)
}

// IsInvalidInput checks if error is an invalid input error
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsIndexUnavailable checks if error is an index unavailable error
func IsIndexUnavailable(err error) bool {
	return errors.Is(err, ErrIndexUnavailable)
}

// IsGeneration checks if error is a generation error
func IsGeneration(err error) bool {
	return errors.Is(err, ErrGeneration)
}
