// Package documents implements the document lifecycle domain for veridoc.
// It provides types, data access, and business logic for document
// ingestion, the verification state machine, result snapshots, and
// attempt history.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/verification"
)

// Status is a document lifecycle state.
type Status string

const (
	StatusQueued      Status = "queued"
	StatusProcessing  Status = "processing"
	StatusValidated   Status = "validated"
	StatusNeedsReview Status = "needs_review"
	StatusFailed      Status = "failed"
	StatusFinalized   Status = "finalized"
	StatusError       Status = "error"
)

// transitions is the lifecycle state machine. finalized is terminal for
// the running lifecycle; the finalized→queued edge exists only for the
// operator reprocess operation, which opens a fresh lifecycle without
// touching prior snapshots.
var transitions = map[Status][]Status{
	StatusQueued:      {StatusProcessing, StatusError},
	StatusProcessing:  {StatusValidated, StatusNeedsReview, StatusFailed, StatusError},
	StatusValidated:   {StatusFinalized, StatusError},
	StatusNeedsReview: {StatusFinalized, StatusError},
	StatusFailed:      {StatusFinalized, StatusError},
	StatusError:       {StatusQueued},
	StatusFinalized:   {StatusQueued},
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OutcomeStatus maps a verification outcome onto the lifecycle status it
// produces from processing.
func OutcomeStatus(o verification.Outcome) Status {
	switch o {
	case verification.OutcomePass:
		return StatusValidated
	case verification.OutcomeReview:
		return StatusNeedsReview
	default:
		return StatusFailed
	}
}

// Document represents an ingested document moving through verification.
// ResultVersion counts committed snapshots and only ever increases;
// CurrentResultID points at the snapshot the document's outcome reflects.
type Document struct {
	ID              uuid.UUID  `json:"id"`
	TemplateID      uuid.UUID  `json:"template_id"`
	TemplateVersion int        `json:"template_version"`
	Filename        string     `json:"filename"`
	ContentType     string     `json:"content_type"`
	SizeBytes       int64      `json:"size_bytes"`
	ContentHash     string     `json:"content_hash"`
	PageCount       *int       `json:"page_count"`
	StorageKey      string     `json:"storage_key"`
	Status          Status     `json:"status"`
	ResultVersion   int        `json:"result_version"`
	CurrentResultID *uuid.UUID `json:"current_result_id"`
	RetryCount      int        `json:"retry_count"`
	NextAttemptAt   *time.Time `json:"next_attempt_at"`
	LastError       *string    `json:"last_error"`
	UploadedAt      time.Time  `json:"uploaded_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Snapshot sources.
const (
	SourceEngine = "engine"
	SourceReview = "review"
)

// ValidationResult is an immutable snapshot of one completed verification.
type ValidationResult struct {
	ID              uuid.UUID                  `json:"id"`
	DocumentID      uuid.UUID                  `json:"document_id"`
	Version         int                        `json:"version"`
	Outcome         verification.Outcome       `json:"outcome"`
	Confidence      float64                    `json:"confidence"`
	Fields          []verification.FieldResult `json:"fields"`
	ExtractedData   map[string]string          `json:"extracted_data"`
	FieldConfidence map[string]float64         `json:"field_confidence"`
	MissingFields   []string                   `json:"missing_fields"`
	Source          string                     `json:"source"`
	CreatedAt       time.Time                  `json:"created_at"`
}

// Attempt statuses.
const (
	AttemptCompleted = "completed"
	AttemptError     = "error"
)

// Attempt records one processing pass over a document, successful or not.
type Attempt struct {
	ID          uuid.UUID  `json:"id"`
	DocumentID  uuid.UUID  `json:"document_id"`
	Number      int        `json:"number"`
	Status      string     `json:"status"`
	Provider    string     `json:"provider"`
	Diagnostics *string    `json:"diagnostics"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// StatusView combines the document with its attempt history and current
// snapshot so that callers always see where a document stands.
type StatusView struct {
	Document      *Document         `json:"document"`
	Attempts      []Attempt         `json:"attempts"`
	CurrentResult *ValidationResult `json:"current_result,omitempty"`
}

// CreateCommand carries the data needed to ingest and register a document.
// Data holds the raw file bytes; PageCount is extracted by the caller for
// PDF uploads.
type CreateCommand struct {
	Data        []byte
	Filename    string
	ContentType string
	TemplateID  uuid.UUID
	PageCount   *int
}

// SnapshotCommand carries one engine verification outcome for atomic commit.
type SnapshotCommand struct {
	DocumentID uuid.UUID
	Result     *verification.Result
	Provider   string
	StartedAt  time.Time
}

// OverrideCommand carries a review-sourced snapshot that finalizes a
// document pending review.
type OverrideCommand struct {
	DocumentID uuid.UUID
	Result     *verification.Result
}
