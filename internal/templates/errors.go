package templates

import (
	"errors"
	"net/http"
)

// Domain errors for template operations.
var (
	ErrNotFound      = errors.New("template not found")
	ErrDuplicate     = errors.New("template name already exists")
	ErrInUse         = errors.New("template is referenced by existing documents")
	ErrNoFields      = errors.New("template requires at least one field definition")
	ErrInvalidField  = errors.New("field definition is invalid")
	ErrDuplicateName = errors.New("field names must be unique within a template")
)

// MapHTTPStatus maps template domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		return http.StatusConflict
	case errors.Is(err, ErrNoFields),
		errors.Is(err, ErrInvalidField),
		errors.Is(err, ErrDuplicateName):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
