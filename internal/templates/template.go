// Package templates implements the template domain for veridoc.
// It provides types, data access, and business logic for managing
// verification templates and their field definitions.
package templates

import (
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/verification"
)

// Template represents a named layout against which documents are verified.
// Version increases whenever the field definitions change after a completed
// verification has referenced the template; results always record the
// version they were produced against.
type Template struct {
	ID          uuid.UUID         `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Version     int               `json:"version"`
	Fields      []FieldDefinition `json:"fields"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// FieldDefinition declares one expected field region on a template page.
// Page zero means page 1.
type FieldDefinition struct {
	ID       uuid.UUID                `json:"id"`
	Name     string                   `json:"name"`
	Page     int                      `json:"page"`
	Box      verification.BoundingBox `json:"box"`
	Required bool                     `json:"required"`
}

// CreateCommand carries the data needed to register a new template.
type CreateCommand struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Fields      []FieldDefinition `json:"fields"`
}

// UpdateCommand carries replacement metadata and field definitions.
type UpdateCommand struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Fields      []FieldDefinition `json:"fields"`
}

// VerificationFields converts the template's field definitions into the
// geometry the verification core consumes.
func (t *Template) VerificationFields() []verification.Field {
	fields := make([]verification.Field, len(t.Fields))
	for i, f := range t.Fields {
		fields[i] = verification.Field{
			ID:       f.ID,
			Name:     f.Name,
			Page:     f.Page,
			Box:      f.Box,
			Required: f.Required,
		}
	}
	return fields
}
