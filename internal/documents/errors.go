package documents

import (
	"errors"
	"net/http"
)

// Domain errors for document operations.
var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("document with identical content already registered")
	ErrInvalidFile       = errors.New("invalid file upload")
	ErrFileTooLarge      = errors.New("file exceeds maximum upload size")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrTemplateNotFound  = errors.New("bound template not found")
	ErrInvalidTransition = errors.New("status transition not permitted")
	ErrNonePending       = errors.New("no documents pending")
)

// MapHTTPStatus maps document domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidFile),
		errors.Is(err, ErrUnsupportedType),
		errors.Is(err, ErrTemplateNotFound):
		return http.StatusBadRequest
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}
