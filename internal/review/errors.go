package review

import (
	"errors"
	"net/http"
)

// Domain errors for review operations.
var (
	ErrNotFound        = errors.New("review item not found")
	ErrDuplicate       = errors.New("document already has a pending review item")
	ErrNoneQueued      = errors.New("no review items pending")
	ErrAlreadyResolved = errors.New("review item already resolved")
	ErrInvalidDecision = errors.New("invalid review decision")
	ErrNoCorrections   = errors.New("correct decision requires corrections")
	ErrWrongReviewer   = errors.New("item is claimed by another reviewer")
)

// MapHTTPStatus maps review domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoneQueued):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrAlreadyResolved),
		errors.Is(err, ErrWrongReviewer):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidDecision), errors.Is(err, ErrNoCorrections):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
