package documents

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "documents", "d").
	Project("id", "ID").
	Project("template_id", "TemplateID").
	Project("template_version", "TemplateVersion").
	Project("filename", "Filename").
	Project("content_type", "ContentType").
	Project("size_bytes", "SizeBytes").
	Project("content_hash", "ContentHash").
	Project("page_count", "PageCount").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("result_version", "ResultVersion").
	Project("current_result_id", "CurrentResultID").
	Project("retry_count", "RetryCount").
	Project("next_attempt_at", "NextAttemptAt").
	Project("last_error", "LastError").
	Project("uploaded_at", "UploadedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{
	Field:      "UploadedAt",
	Descending: true,
}

// documentColumns is the RETURNING list matching scanDocument.
const documentColumns = `id, template_id, template_version, filename, content_type,
	size_bytes, content_hash, page_count, storage_key, status, result_version,
	current_result_id, retry_count, next_attempt_at, last_error, uploaded_at, updated_at`

// resultColumns is the RETURNING list matching scanResult.
const resultColumns = `id, document_id, version, outcome, confidence, fields,
	extracted_data, field_confidence, missing_fields, source, created_at`

// Filters contains optional filtering criteria for document queries.
// Nil fields are ignored.
type Filters struct {
	Status     *Status    `json:"status,omitempty"`
	TemplateID *uuid.UUID `json:"template_id,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Status", f.Status).
		WhereEquals("TemplateID", f.TemplateID)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if s := values.Get("status"); s != "" {
		status := Status(s)
		f.Status = &status
	}

	if t := values.Get("template_id"); t != "" {
		if id, err := uuid.Parse(t); err == nil {
			f.TemplateID = &id
		}
	}

	return f
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document

	err := s.Scan(
		&d.ID,
		&d.TemplateID,
		&d.TemplateVersion,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.ContentHash,
		&d.PageCount,
		&d.StorageKey,
		&d.Status,
		&d.ResultVersion,
		&d.CurrentResultID,
		&d.RetryCount,
		&d.NextAttemptAt,
		&d.LastError,
		&d.UploadedAt,
		&d.UpdatedAt,
	)

	return d, err
}

func scanResult(s repository.Scanner) (ValidationResult, error) {
	var v ValidationResult
	var fieldsRaw, extractedRaw, confidenceRaw, missingRaw []byte

	err := s.Scan(
		&v.ID,
		&v.DocumentID,
		&v.Version,
		&v.Outcome,
		&v.Confidence,
		&fieldsRaw,
		&extractedRaw,
		&confidenceRaw,
		&missingRaw,
		&v.Source,
		&v.CreatedAt,
	)

	if err != nil {
		return v, err
	}

	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &v.Fields); err != nil {
			return v, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	if len(extractedRaw) > 0 {
		if err := json.Unmarshal(extractedRaw, &v.ExtractedData); err != nil {
			return v, fmt.Errorf("unmarshal extracted_data: %w", err)
		}
	}
	if len(confidenceRaw) > 0 {
		if err := json.Unmarshal(confidenceRaw, &v.FieldConfidence); err != nil {
			return v, fmt.Errorf("unmarshal field_confidence: %w", err)
		}
	}
	if len(missingRaw) > 0 {
		if err := json.Unmarshal(missingRaw, &v.MissingFields); err != nil {
			return v, fmt.Errorf("unmarshal missing_fields: %w", err)
		}
	}

	if v.ExtractedData == nil {
		v.ExtractedData = map[string]string{}
	}
	if v.FieldConfidence == nil {
		v.FieldConfidence = map[string]float64{}
	}
	if v.MissingFields == nil {
		v.MissingFields = []string{}
	}

	return v, nil
}

func scanAttempt(s repository.Scanner) (Attempt, error) {
	var a Attempt

	err := s.Scan(
		&a.ID,
		&a.DocumentID,
		&a.Number,
		&a.Status,
		&a.Provider,
		&a.Diagnostics,
		&a.StartedAt,
		&a.CompletedAt,
	)

	return a, err
}
