// Package verification implements the document verification core: spatial
// matching of OCR blocks against template field regions, per-field and
// document-level confidence scoring, and outcome classification. Everything
// in this package is a pure function of its inputs so that verification can
// be re-run without re-invoking OCR.
package verification

import (
	"github.com/google/uuid"
)

// Block is a single region of recognized text produced by an OCR provider.
type Block struct {
	Page       int         `json:"page"`
	Box        BoundingBox `json:"box"`
	Text       string      `json:"text"`
	Confidence float64     `json:"confidence"`
}

// Field is the geometry and policy of one template field as seen by the
// verification core. Page zero is treated as page 1.
type Field struct {
	ID       uuid.UUID
	Name     string
	Page     int
	Box      BoundingBox
	Required bool
}

// Outcome classifies a field or a whole document.
type Outcome string

const (
	OutcomePass    Outcome = "pass"
	OutcomeReview  Outcome = "review"
	OutcomeFail    Outcome = "fail"
	OutcomeMissing Outcome = "missing"
)

// FieldResult is the verification outcome for a single field.
type FieldResult struct {
	FieldID    uuid.UUID `json:"field_id"`
	Name       string    `json:"name"`
	Required   bool      `json:"required"`
	Text       *string   `json:"text,omitempty"`
	Confidence float64   `json:"confidence"`
	Outcome    Outcome   `json:"outcome"`
}

// Matched reports whether any OCR text was bound to the field.
func (r FieldResult) Matched() bool {
	return r.Text != nil
}

// Result is one complete verification of a document against a template.
type Result struct {
	Outcome         Outcome            `json:"outcome"`
	Confidence      float64            `json:"confidence"`
	Fields          []FieldResult      `json:"fields"`
	ExtractedData   map[string]string  `json:"extracted_data"`
	FieldConfidence map[string]float64 `json:"field_confidence"`
	MissingFields   []string           `json:"missing_fields"`
}

func fieldPage(f Field) int {
	if f.Page < 1 {
		return 1
	}
	return f.Page
}
