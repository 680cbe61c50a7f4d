package templates

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "templates", "t").
	Project("id", "ID").
	Project("name", "Name").
	Project("description", "Description").
	Project("version", "Version").
	Project("fields", "Fields").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field: "Name",
}

// Filters contains optional filtering criteria for template queries.
// Nil fields are ignored.
type Filters struct {
	Name *string `json:"name,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.WhereEquals("Name", f.Name)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if n := values.Get("name"); n != "" {
		f.Name = &n
	}

	return f
}

func scanTemplate(s repository.Scanner) (Template, error) {
	var t Template
	var fieldsRaw []byte

	err := s.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.Version,
		&fieldsRaw,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	if err != nil {
		return t, err
	}

	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &t.Fields); err != nil {
			return t, fmt.Errorf("unmarshal fields: %w", err)
		}
	}

	if t.Fields == nil {
		t.Fields = []FieldDefinition{}
	}

	return t, nil
}
