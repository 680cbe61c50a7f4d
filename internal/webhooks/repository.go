package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/pkg/pagination"
	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
)

type repo struct {
	db         *sql.DB
	cfg        Config
	client     *http.Client
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a webhook repository implementing the System interface.
func New(
	db *sql.DB,
	cfg Config,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.RequestTimeout()},
		logger:     logger.With("system", "webhooks"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) ListSubscribers(
	ctx context.Context,
	page pagination.PageRequest,
) (*pagination.PageResult[Subscriber], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(subscriberProjection, subscriberSort)

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count subscribers: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	subs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanSubscriber)
	if err != nil {
		return nil, fmt.Errorf("query subscribers: %w", err)
	}

	result := pagination.NewPageResult(subs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) CreateSubscriber(ctx context.Context, cmd CreateCommand) (*Subscriber, error) {
	if err := validateURL(cmd.URL); err != nil {
		return nil, err
	}

	enabled := true
	if cmd.Enabled != nil {
		enabled = *cmd.Enabled
	}

	q := `
		INSERT INTO webhook_subscriptions(url, secret, enabled)
		VALUES ($1, $2, $3)
		RETURNING id, url, secret, enabled, created_at`

	s, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Subscriber, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.URL, cmd.Secret, enabled}, scanSubscriber)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("subscriber registered", "id", s.ID, "url", s.URL, "enabled", s.Enabled)
	return &s, nil
}

func (r *repo) DeleteSubscriber(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM webhook_subscriptions WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("subscriber deleted", "id", id)
	return nil
}

func (r *repo) ListDeliveries(
	ctx context.Context,
	page pagination.PageRequest,
	filters DeliveryFilters,
) (*pagination.PageResult[Delivery], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(deliveryProjection, deliverySort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count deliveries: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	deliveries, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDelivery)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}

	result := pagination.NewPageResult(deliveries, total, page.Page, page.PageSize)
	return &result, nil
}

// newDeliveries stamps one delivery per enabled subscriber with a fresh
// delivery id embedded in its payload.
func newDeliveries(subs []Subscriber, payload Payload) ([]Delivery, error) {
	deliveries := make([]Delivery, 0, len(subs))

	for _, sub := range subs {
		if !sub.Enabled {
			continue
		}

		payload.DeliveryID = uuid.New()

		body, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}

		deliveries = append(deliveries, Delivery{
			ID:           payload.DeliveryID,
			SubscriberID: sub.ID,
			DocumentID:   payload.DocumentID,
			Payload:      body,
		})
	}

	return deliveries, nil
}

func (r *repo) EnqueueFinalized(ctx context.Context, tx *sql.Tx, payload Payload) ([]Delivery, error) {
	subs, err := repository.QueryMany(ctx, tx,
		"SELECT id, url, secret, enabled, created_at FROM webhook_subscriptions WHERE enabled",
		nil, scanSubscriber,
	)
	if err != nil {
		return nil, fmt.Errorf("query enabled subscribers: %w", err)
	}

	pending, err := newDeliveries(subs, payload)
	if err != nil {
		return nil, err
	}

	q := `
		INSERT INTO webhook_deliveries(id, subscriber_id, document_id, payload, next_attempt_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + deliveryColumns

	deliveries := make([]Delivery, 0, len(pending))
	for _, p := range pending {
		d, err := repository.QueryOne(ctx, tx, q,
			[]any{p.ID, p.SubscriberID, p.DocumentID, p.Payload},
			scanDelivery,
		)
		if err != nil {
			return nil, fmt.Errorf("record delivery: %w", err)
		}
		deliveries = append(deliveries, d)
	}

	r.logger.Info("finalization enqueued",
		"document_id", payload.DocumentID,
		"subscribers", len(deliveries),
	)
	return deliveries, nil
}

func (r *repo) Deliver(ctx context.Context, deliveries []Delivery) {
	for _, d := range deliveries {
		sub, err := repository.QueryOne(ctx, r.db,
			"SELECT id, url, secret, enabled, created_at FROM webhook_subscriptions WHERE id = $1",
			[]any{d.SubscriberID}, scanSubscriber,
		)
		if err != nil {
			r.logger.Warn("delivery subscriber lookup failed", "delivery_id", d.ID, "error", err)
			continue
		}

		r.attempt(ctx, d, sub)
	}
}

func (r *repo) SweepDue(ctx context.Context) (int, error) {
	q := `
		SELECT ` + deliveryColumns + `
		FROM webhook_deliveries
		WHERE status = 'pending' AND next_attempt_at <= NOW()
		ORDER BY next_attempt_at`

	due, err := repository.QueryMany(ctx, r.db, q, nil, scanDelivery)
	if err != nil {
		return 0, fmt.Errorf("query due deliveries: %w", err)
	}

	for _, d := range due {
		sub, err := repository.QueryOne(ctx, r.db,
			"SELECT id, url, secret, enabled, created_at FROM webhook_subscriptions WHERE id = $1",
			[]any{d.SubscriberID}, scanSubscriber,
		)
		if err != nil {
			r.logger.Warn("delivery subscriber lookup failed", "delivery_id", d.ID, "error", err)
			continue
		}
		if !sub.Enabled {
			continue
		}

		r.attempt(ctx, d, sub)
	}

	return len(due), nil
}

// attempt sends one delivery and settles its record. Attempt counters are
// updated only here.
func (r *repo) attempt(ctx context.Context, d Delivery, sub Subscriber) {
	sendErr := r.send(ctx, sub, d.Payload)
	attempts := d.Attempts + 1

	if sendErr == nil {
		_, err := r.db.ExecContext(ctx,
			`UPDATE webhook_deliveries
			 SET status = 'delivered', attempts = $1, delivered_at = NOW(),
				 next_attempt_at = NULL, last_error = NULL
			 WHERE id = $2`,
			attempts, d.ID,
		)
		if err != nil {
			r.logger.Error("delivery settle failed", "delivery_id", d.ID, "error", err)
			return
		}
		r.logger.Info("delivery succeeded", "delivery_id", d.ID, "url", sub.URL, "attempts", attempts)
		return
	}

	status := DeliveryPending
	var next *time.Time
	if attempts >= r.cfg.MaxAttempts {
		status = DeliveryExhausted
	} else {
		at := time.Now().Add(r.cfg.Backoff(attempts))
		next = &at
	}

	msg := sendErr.Error()
	_, err := r.db.ExecContext(ctx,
		`UPDATE webhook_deliveries
		 SET status = $1, attempts = $2, next_attempt_at = $3, last_error = $4
		 WHERE id = $5`,
		status, attempts, next, msg, d.ID,
	)
	if err != nil {
		r.logger.Error("delivery settle failed", "delivery_id", d.ID, "error", err)
		return
	}

	r.logger.Warn("delivery attempt failed",
		"delivery_id", d.ID,
		"url", sub.URL,
		"attempts", attempts,
		"status", status,
		"error", sendErr,
	)
}

func (r *repo) send(ctx context.Context, sub Subscriber, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sub.Secret != "" {
		req.Header.Set("X-Veridoc-Signature", sign(sub.Secret, body))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidURL
	}
	return nil
}
