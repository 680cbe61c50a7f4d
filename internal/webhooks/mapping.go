package webhooks

import (
	"net/url"

	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
)

var subscriberProjection = query.
	NewProjectionMap("public", "webhook_subscriptions", "s").
	Project("id", "ID").
	Project("url", "URL").
	Project("secret", "Secret").
	Project("enabled", "Enabled").
	Project("created_at", "CreatedAt")

var deliveryProjection = query.
	NewProjectionMap("public", "webhook_deliveries", "w").
	Project("id", "ID").
	Project("subscriber_id", "SubscriberID").
	Project("document_id", "DocumentID").
	Project("payload", "Payload").
	Project("status", "Status").
	Project("attempts", "Attempts").
	Project("next_attempt_at", "NextAttemptAt").
	Project("last_error", "LastError").
	Project("created_at", "CreatedAt").
	Project("delivered_at", "DeliveredAt")

var subscriberSort = query.SortField{Field: "CreatedAt"}

var deliverySort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// deliveryColumns is the RETURNING list matching scanDelivery.
const deliveryColumns = `id, subscriber_id, document_id, payload, status,
	attempts, next_attempt_at, last_error, created_at, delivered_at`

// DeliveryFilters contains optional filtering criteria for delivery queries.
// Nil fields are ignored.
type DeliveryFilters struct {
	Status *string `json:"status,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f DeliveryFilters) Apply(b *query.Builder) *query.Builder {
	return b.WhereEquals("Status", f.Status)
}

// DeliveryFiltersFromQuery extracts filter values from URL query parameters.
func DeliveryFiltersFromQuery(values url.Values) DeliveryFilters {
	var f DeliveryFilters

	if s := values.Get("status"); s != "" {
		f.Status = &s
	}

	return f
}

func scanSubscriber(s repository.Scanner) (Subscriber, error) {
	var sub Subscriber

	err := s.Scan(
		&sub.ID,
		&sub.URL,
		&sub.Secret,
		&sub.Enabled,
		&sub.CreatedAt,
	)

	return sub, err
}

func scanDelivery(s repository.Scanner) (Delivery, error) {
	var d Delivery

	err := s.Scan(
		&d.ID,
		&d.SubscriberID,
		&d.DocumentID,
		&d.Payload,
		&d.Status,
		&d.Attempts,
		&d.NextAttemptAt,
		&d.LastError,
		&d.CreatedAt,
		&d.DeliveredAt,
	)

	return d, err
}
