package webhooks

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/pagination"
)

// System defines the public contract for webhook operations.
type System interface {
	Handler() *Handler

	ListSubscribers(
		ctx context.Context,
		page pagination.PageRequest,
	) (*pagination.PageResult[Subscriber], error)

	CreateSubscriber(ctx context.Context, cmd CreateCommand) (*Subscriber, error)
	DeleteSubscriber(ctx context.Context, id uuid.UUID) error

	ListDeliveries(
		ctx context.Context,
		page pagination.PageRequest,
		filters DeliveryFilters,
	) (*pagination.PageResult[Delivery], error)

	// EnqueueFinalized records one pending delivery per enabled subscriber
	// inside the caller's transaction, so the delivery rows commit or roll
	// back together with the finalization itself.
	EnqueueFinalized(ctx context.Context, tx *sql.Tx, payload Payload) ([]Delivery, error)

	// Deliver makes an immediate attempt for freshly committed deliveries.
	// Failures are scheduled for retry by the sweep; delivery never blocks
	// or fails document finalization.
	Deliver(ctx context.Context, deliveries []Delivery)

	// SweepDue attempts every delivery whose retry is due.
	SweepDue(ctx context.Context) (int, error)
}
