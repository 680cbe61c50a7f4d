// Package review implements the human review queue for veridoc. Documents
// whose verification lands in the review band are routed here; reviewers
// claim items, decide them exactly once, and the decision finalizes the
// document with an override snapshot.
package review

import (
	"time"

	"github.com/google/uuid"
)

// Item statuses.
const (
	StatusPending  = "pending"
	StatusClaimed  = "claimed"
	StatusResolved = "resolved"
)

// Review decisions.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
	DecisionCorrect = "correct"
)

// Item is one document awaiting human review. Priority orders the queue,
// highest first; EscalatedAt marks the one-time SLA priority bump.
type Item struct {
	ID          uuid.UUID         `json:"id"`
	DocumentID  uuid.UUID         `json:"document_id"`
	ResultID    uuid.UUID         `json:"result_id"`
	Priority    int               `json:"priority"`
	Status      string            `json:"status"`
	ReviewerID  *string           `json:"reviewer_id"`
	Decision    *string           `json:"decision"`
	Corrections map[string]string `json:"corrections,omitempty"`
	QueuedAt    time.Time         `json:"queued_at"`
	ClaimedAt   *time.Time        `json:"claimed_at"`
	ResolvedAt  *time.Time        `json:"resolved_at"`
	EscalatedAt *time.Time        `json:"escalated_at"`
}

// EnqueueCommand routes a review-outcome verification into the queue.
// Priority, when supplied, overrides the derived value.
type EnqueueCommand struct {
	DocumentID      uuid.UUID
	ResultID        uuid.UUID
	Confidence      float64
	MissingRequired int
	Priority        *int
}

// ClaimCommand identifies the reviewer taking the next item.
type ClaimCommand struct {
	ReviewerID string `json:"reviewer_id"`
}

// ResolveCommand carries a reviewer's decision. Corrections is required
// for the correct decision and maps field names to corrected values.
type ResolveCommand struct {
	ReviewerID  string            `json:"reviewer_id"`
	Decision    string            `json:"decision"`
	Corrections map[string]string `json:"corrections,omitempty"`
}
