package review

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "review_items", "r").
	Project("id", "ID").
	Project("document_id", "DocumentID").
	Project("result_id", "ResultID").
	Project("priority", "Priority").
	Project("status", "Status").
	Project("reviewer_id", "ReviewerID").
	Project("decision", "Decision").
	Project("corrections", "Corrections").
	Project("queued_at", "QueuedAt").
	Project("claimed_at", "ClaimedAt").
	Project("resolved_at", "ResolvedAt").
	Project("escalated_at", "EscalatedAt")

var defaultSort = query.SortField{
	Field:      "Priority",
	Descending: true,
}

// itemColumns is the RETURNING list matching scanItem.
const itemColumns = `id, document_id, result_id, priority, status, reviewer_id,
	decision, corrections, queued_at, claimed_at, resolved_at, escalated_at`

// Filters contains optional filtering criteria for review queue queries.
// Nil fields are ignored.
type Filters struct {
	Status     *string    `json:"status,omitempty"`
	ReviewerID *string    `json:"reviewer_id,omitempty"`
	DocumentID *uuid.UUID `json:"document_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("ReviewerID", f.ReviewerID).
		WhereEquals("DocumentID", f.DocumentID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	if v := values.Get("reviewer_id"); v != "" {
		f.ReviewerID = &v
	}

	if d := values.Get("document_id"); d != "" {
		if id, err := uuid.Parse(d); err == nil {
			f.DocumentID = &id
		}
	}

	return f
}

func scanItem(s repository.Scanner) (Item, error) {
	var i Item
	var correctionsRaw []byte

	err := s.Scan(
		&i.ID,
		&i.DocumentID,
		&i.ResultID,
		&i.Priority,
		&i.Status,
		&i.ReviewerID,
		&i.Decision,
		&correctionsRaw,
		&i.QueuedAt,
		&i.ClaimedAt,
		&i.ResolvedAt,
		&i.EscalatedAt,
	)

	if err != nil {
		return i, err
	}

	if len(correctionsRaw) > 0 {
		if err := json.Unmarshal(correctionsRaw, &i.Corrections); err != nil {
			return i, fmt.Errorf("unmarshal corrections: %w", err)
		}
	}

	return i, nil
}
