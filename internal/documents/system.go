package documents

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/pagination"
)

// Canceller interrupts an in-flight verification attempt. The processing
// subsystem provides the implementation through its lease registry.
type Canceller interface {
	Cancel(documentID uuid.UUID) bool
}

// System defines the public contract for document domain operations.
// Lifecycle methods enforce the transition table; callers never write
// status values directly.
type System interface {
	Handler(maxUploadSize int64, allowedTypes []string, canceller Canceller) *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Document], error)

	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error

	Status(ctx context.Context, id uuid.UUID) (*StatusView, error)
	Results(ctx context.Context, id uuid.UUID) ([]ValidationResult, error)
	Download(ctx context.Context, id uuid.UUID) ([]byte, string, error)

	// ClaimNext atomically moves the oldest due queued document to
	// processing. Returns ErrNonePending when the queue is empty.
	ClaimNext(ctx context.Context) (*Document, error)

	// CommitSnapshot records one engine verification all-or-nothing:
	// snapshot row, attempt row, and the document's outcome status,
	// version bump, and current-result pointer in a single transaction.
	CommitSnapshot(ctx context.Context, cmd SnapshotCommand) (*ValidationResult, error)

	// CommitOverride records a review-sourced snapshot and finalizes the
	// document in a single transaction.
	CommitOverride(ctx context.Context, cmd OverrideCommand) (*ValidationResult, error)

	// MarkError moves a non-terminal document to error with diagnostics.
	// Retryable faults schedule the next attempt; fatal ones do not.
	MarkError(ctx context.Context, id uuid.UUID, diagnostics, provider string, startedAt time.Time, retryable bool, nextAttempt time.Time) error

	// RequeueDue returns errored documents with remaining retry budget
	// and a due next attempt back to queued.
	RequeueDue(ctx context.Context, retryBudget int) (int, error)

	// ReclaimStale moves processing documents whose last update is older
	// than the window to error, consuming one retry. Recovers work
	// stranded by a crashed worker.
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error)

	// Finalize moves a validated or failed document to its terminal state.
	// A non-nil enqueue runs inside the finalization transaction, so work
	// it records (webhook delivery rows) commits atomically with the
	// status change.
	Finalize(ctx context.Context, id uuid.UUID, enqueue func(tx *sql.Tx) error) (*Document, error)

	// Reprocess opens a fresh lifecycle from queued. Permitted from
	// finalized, failed, and error; prior snapshots are preserved.
	Reprocess(ctx context.Context, id uuid.UUID) (*Document, error)

	// CancelQueued moves a queued document to error before any attempt
	// starts. In-flight attempts are cancelled through the Canceller.
	CancelQueued(ctx context.Context, id uuid.UUID) error
}
