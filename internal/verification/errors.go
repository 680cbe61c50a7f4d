package verification

import "errors"

// Verification input errors. These indicate malformed geometry and are
// fatal to a processing attempt, never retried.
var (
	ErrInvalidBounds = errors.New("bounding box coordinates are invalid")
	ErrInvalidPage   = errors.New("page number must be >= 1")
	ErrNoFields      = errors.New("template has no field definitions")
)
