package review

import (
	"context"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/pagination"
)

// System defines the public contract for review queue operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Item], error)

	Find(ctx context.Context, id uuid.UUID) (*Item, error)

	// Enqueue routes a review-outcome verification into the queue.
	Enqueue(ctx context.Context, cmd EnqueueCommand) (*Item, error)

	// Claim atomically assigns the highest-priority pending item to the
	// reviewer. Returns ErrNoneQueued when the queue is empty.
	Claim(ctx context.Context, cmd ClaimCommand) (*Item, error)

	// Resolve applies a reviewer's decision exactly once: the item is
	// marked resolved, the document is finalized with an override
	// snapshot, and finalization is dispatched to webhook subscribers.
	Resolve(ctx context.Context, id uuid.UUID, cmd ResolveCommand) (*Item, error)

	// EscalateOverdue bumps priority once for pending items older than
	// the SLA window. Run from the scheduled sweep.
	EscalateOverdue(ctx context.Context) (int, error)
}
