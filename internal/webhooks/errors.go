package webhooks

import (
	"errors"
	"net/http"
)

// Domain errors for webhook operations.
var (
	ErrNotFound   = errors.New("subscriber not found")
	ErrDuplicate  = errors.New("subscriber url already registered")
	ErrInvalidURL = errors.New("subscriber url must be absolute http or https")
)

// MapHTTPStatus maps webhook domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidURL):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
