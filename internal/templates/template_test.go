package templates

import (
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/verification"
)

func box(x1, y1, x2, y2 float64) verification.BoundingBox {
	return verification.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func TestNormalizeFields(t *testing.T) {
	tests := []struct {
		name    string
		fields  []FieldDefinition
		wantErr error
	}{
		{
			name:    "empty",
			fields:  nil,
			wantErr: ErrNoFields,
		},
		{
			name: "valid",
			fields: []FieldDefinition{
				{Name: "invoice_number", Box: box(10, 10, 100, 30), Required: true},
				{Name: "issue_date", Page: 2, Box: box(10, 40, 100, 60)},
			},
		},
		{
			name: "missing name",
			fields: []FieldDefinition{
				{Box: box(10, 10, 100, 30)},
			},
			wantErr: ErrInvalidField,
		},
		{
			name: "degenerate box",
			fields: []FieldDefinition{
				{Name: "total", Box: box(100, 10, 100, 30)},
			},
			wantErr: ErrInvalidField,
		},
		{
			name: "negative page",
			fields: []FieldDefinition{
				{Name: "total", Page: -1, Box: box(10, 10, 100, 30)},
			},
			wantErr: ErrInvalidField,
		},
		{
			name: "duplicate field name",
			fields: []FieldDefinition{
				{Name: "total", Box: box(10, 10, 100, 30)},
				{Name: "total", Box: box(10, 40, 100, 60)},
			},
			wantErr: ErrDuplicateName,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := normalizeFields(tc.fields)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for i, f := range out {
				if f.ID == uuid.Nil {
					t.Errorf("field %d: id not assigned", i)
				}
			}
		})
	}
}

func TestNormalizeFieldsPreservesIDs(t *testing.T) {
	id := uuid.New()
	out, err := normalizeFields([]FieldDefinition{
		{ID: id, Name: "total", Box: box(10, 10, 100, 30)},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].ID != id {
		t.Errorf("id = %s, want %s", out[0].ID, id)
	}
}

func TestVerificationFields(t *testing.T) {
	tpl := &Template{
		Fields: []FieldDefinition{
			{ID: uuid.New(), Name: "total", Page: 2, Box: box(10, 10, 100, 30), Required: true},
		},
	}

	fields := tpl.VerificationFields()
	if len(fields) != 1 {
		t.Fatalf("fields = %d, want 1", len(fields))
	}
	f := fields[0]
	if f.Name != "total" || f.Page != 2 || !f.Required {
		t.Errorf("unexpected conversion: %+v", f)
	}
	if f.Box != tpl.Fields[0].Box {
		t.Errorf("box = %+v, want %+v", f.Box, tpl.Fields[0].Box)
	}
}
