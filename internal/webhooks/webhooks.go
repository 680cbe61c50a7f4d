// Package webhooks implements finalization notifications for veridoc:
// subscriber management, durable delivery records, and an at-least-once
// dispatcher with exponential backoff.
package webhooks

import (
	"time"

	"github.com/google/uuid"
)

// Delivery statuses. Exhausted deliveries keep their records and are
// surfaced to operators, never dropped.
const (
	DeliveryPending   = "pending"
	DeliveryDelivered = "delivered"
	DeliveryExhausted = "exhausted"
)

// Subscriber is a registered webhook endpoint. Secret, when set, is used
// to sign payloads with HMAC-SHA256.
type Subscriber struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	Secret    string    `json:"-"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Delivery is one pending or settled webhook notification. The payload is
// snapshotted at enqueue time so later document changes never leak into a
// notification. DeliveryID inside the payload lets receivers deduplicate.
type Delivery struct {
	ID            uuid.UUID  `json:"id"`
	SubscriberID  uuid.UUID  `json:"subscriber_id"`
	DocumentID    uuid.UUID  `json:"document_id"`
	Payload       []byte     `json:"payload"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt *time.Time `json:"next_attempt_at"`
	LastError     *string    `json:"last_error"`
	CreatedAt     time.Time  `json:"created_at"`
	DeliveredAt   *time.Time `json:"delivered_at"`
}

// Payload is the document-finalized notification body.
type Payload struct {
	DeliveryID      uuid.UUID          `json:"delivery_id"`
	DocumentID      uuid.UUID          `json:"document_id"`
	TemplateID      uuid.UUID          `json:"template_id"`
	TemplateVersion int                `json:"template_version"`
	Version         int                `json:"version"`
	Classification  string             `json:"classification"`
	Confidence      float64            `json:"confidence"`
	ExtractedData   map[string]string  `json:"extracted_data"`
	FieldConfidence map[string]float64 `json:"per_field_confidence"`
	MissingFields   []string           `json:"missing_fields"`
	FinalizedAt     time.Time          `json:"finalized_at"`
}

// CreateCommand registers a new subscriber.
type CreateCommand struct {
	URL     string `json:"url"`
	Secret  string `json:"secret"`
	Enabled *bool  `json:"enabled"`
}
