package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/veridoc/veridoc/internal/ocr"
	"github.com/veridoc/veridoc/internal/verification"
)

// InputError marks a fault in the caller's input. Input errors are never
// retried; the attempt records the diagnostics and the document goes to
// error without a scheduled retry.
type InputError struct {
	Err error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error: %v", e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// Input wraps an error as an InputError.
func Input(err error) error {
	return &InputError{Err: err}
}

// TransientFault marks collaborator unavailability. Transient faults are
// retried within the document's budget.
type TransientFault struct {
	Err error
}

func (e *TransientFault) Error() string {
	return fmt.Sprintf("transient fault: %v", e.Err)
}

func (e *TransientFault) Unwrap() error {
	return e.Err
}

// Transient wraps an error as a TransientFault.
func Transient(err error) error {
	return &TransientFault{Err: err}
}

// Retryable classifies an attempt failure. OCR availability errors and
// context cancellation count as transient; verification geometry errors
// are deterministic and never retried.
func Retryable(err error) bool {
	var input *InputError
	if errors.As(err, &input) {
		return false
	}

	var transient *TransientFault
	if errors.As(err, &transient) {
		return true
	}

	switch {
	case errors.Is(err, ocr.ErrUnavailable),
		errors.Is(err, ocr.ErrTimeout),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, verification.ErrInvalidBounds),
		errors.Is(err, verification.ErrInvalidPage),
		errors.Is(err, verification.ErrNoFields):
		return false
	}

	// Unclassified faults drain the retry budget.
	return true
}
