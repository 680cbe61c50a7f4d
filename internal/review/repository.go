package review

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/verification"
	"github.com/veridoc/veridoc/internal/webhooks"
	"github.com/veridoc/veridoc/pkg/pagination"
	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
)

// Dispatcher notifies webhook subscribers of a finalized document.
// Delivery rows are enqueued inside the resolving transaction so they
// commit atomically with the finalization; sending happens after commit.
type Dispatcher interface {
	EnqueueFinalized(ctx context.Context, tx *sql.Tx, payload webhooks.Payload) ([]webhooks.Delivery, error)
	Deliver(ctx context.Context, deliveries []webhooks.Delivery)
}

type repo struct {
	db         *sql.DB
	cfg        Config
	dispatcher Dispatcher
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a review repository implementing the System interface.
func New(
	db *sql.DB,
	cfg Config,
	dispatcher Dispatcher,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger.With("system", "review"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Item], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort, query.SortField{Field: "QueuedAt"})

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count review items: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanItem)
	if err != nil {
		return nil, fmt.Errorf("query review items: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Item, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	i, err := repository.QueryOne(ctx, r.db, q, args, scanItem)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &i, nil
}

func (r *repo) Enqueue(ctx context.Context, cmd EnqueueCommand) (*Item, error) {
	priority := r.cfg.DerivePriority(cmd.Confidence, cmd.MissingRequired)
	if cmd.Priority != nil {
		priority = *cmd.Priority
	}

	q := `
		INSERT INTO review_items(document_id, result_id, priority)
		VALUES ($1, $2, $3)
		RETURNING ` + itemColumns

	i, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Item, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.DocumentID, cmd.ResultID, priority}, scanItem)
	})

	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("review item enqueued",
		"id", i.ID,
		"document_id", i.DocumentID,
		"priority", i.Priority,
	)
	return &i, nil
}

func (r *repo) Claim(ctx context.Context, cmd ClaimCommand) (*Item, error) {
	q := `
		UPDATE review_items
		SET status = 'claimed', reviewer_id = $1, claimed_at = NOW()
		WHERE id = (
			SELECT id FROM review_items
			WHERE status = 'pending'
			ORDER BY priority DESC, queued_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + itemColumns

	i, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Item, error) {
		return repository.QueryOne(ctx, tx, q, []any{cmd.ReviewerID}, scanItem)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoneQueued
	}
	if err != nil {
		return nil, fmt.Errorf("claim review item: %w", err)
	}

	r.logger.Info("review item claimed", "id", i.ID, "reviewer_id", cmd.ReviewerID)
	return &i, nil
}

func (r *repo) Resolve(ctx context.Context, id uuid.UUID, cmd ResolveCommand) (*Item, error) {
	if err := validateDecision(cmd); err != nil {
		return nil, err
	}

	type resolved struct {
		item       Item
		deliveries []webhooks.Delivery
	}

	out, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (resolved, error) {
		item, err := repository.QueryOne(ctx, tx,
			"SELECT "+itemColumns+" FROM review_items WHERE id = $1 FOR UPDATE",
			[]any{id}, scanItem,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return resolved{}, ErrNotFound
		}
		if err != nil {
			return resolved{}, fmt.Errorf("lock review item: %w", err)
		}

		if item.Status == StatusResolved {
			return resolved{}, ErrAlreadyResolved
		}
		if item.Status == StatusClaimed && item.ReviewerID != nil && *item.ReviewerID != cmd.ReviewerID {
			return resolved{}, ErrWrongReviewer
		}

		var doc struct {
			status          string
			resultVersion   int
			templateID      uuid.UUID
			templateVersion int
		}
		err = tx.QueryRowContext(ctx,
			"SELECT status, result_version, template_id, template_version FROM documents WHERE id = $1 FOR UPDATE",
			item.DocumentID,
		).Scan(&doc.status, &doc.resultVersion, &doc.templateID, &doc.templateVersion)
		if err != nil {
			return resolved{}, fmt.Errorf("lock document: %w", err)
		}
		if doc.status != "needs_review" {
			return resolved{}, fmt.Errorf("%w: document is %s", ErrAlreadyResolved, doc.status)
		}

		base, err := loadResult(ctx, tx, item.ResultID)
		if err != nil {
			return resolved{}, err
		}

		override := applyDecision(base, cmd.Decision, cmd.Corrections)

		overrideID, version, err := insertOverride(ctx, tx, item.DocumentID, doc.resultVersion+1, override)
		if err != nil {
			return resolved{}, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents
			 SET status = 'finalized', result_version = $1, current_result_id = $2, updated_at = NOW()
			 WHERE id = $3 AND status = 'needs_review'`,
			version, overrideID, item.DocumentID,
		); err != nil {
			return resolved{}, fmt.Errorf("finalize document: %w", err)
		}

		correctionsJSON, err := json.Marshal(cmd.Corrections)
		if err != nil {
			return resolved{}, fmt.Errorf("marshal corrections: %w", err)
		}

		item, err = repository.QueryOne(ctx, tx,
			`UPDATE review_items
			 SET status = 'resolved', reviewer_id = $1, decision = $2,
				 corrections = $3, resolved_at = NOW()
			 WHERE id = $4
			 RETURNING `+itemColumns,
			[]any{cmd.ReviewerID, cmd.Decision, correctionsJSON, id}, scanItem,
		)
		if err != nil {
			return resolved{}, fmt.Errorf("resolve review item: %w", err)
		}

		deliveries, err := r.dispatcher.EnqueueFinalized(ctx, tx, webhooks.Payload{
			DocumentID:      item.DocumentID,
			TemplateID:      doc.templateID,
			TemplateVersion: doc.templateVersion,
			Version:         version,
			Classification:  string(override.Outcome),
			Confidence:      override.Confidence,
			ExtractedData:   override.ExtractedData,
			FieldConfidence: override.FieldConfidence,
			MissingFields:   override.MissingFields,
			FinalizedAt:     time.Now().UTC(),
		})
		if err != nil {
			return resolved{}, fmt.Errorf("enqueue finalization: %w", err)
		}

		return resolved{
			item:       item,
			deliveries: deliveries,
		}, nil
	})

	if err != nil {
		return nil, err
	}

	r.dispatcher.Deliver(ctx, out.deliveries)

	r.logger.Info("review item resolved",
		"id", out.item.ID,
		"document_id", out.item.DocumentID,
		"decision", cmd.Decision,
		"reviewer_id", cmd.ReviewerID,
	)
	return &out.item, nil
}

func (r *repo) EscalateOverdue(ctx context.Context) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE review_items
		 SET priority = priority + 1, escalated_at = NOW()
		 WHERE status = 'pending'
		   AND escalated_at IS NULL
		   AND queued_at < NOW() - $1::interval`,
		r.cfg.SLAWindow().String(),
	)
	if err != nil {
		return 0, fmt.Errorf("escalate overdue items: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("escalate rows affected: %w", err)
	}

	if affected > 0 {
		r.logger.Info("review items escalated", "count", affected)
	}
	return int(affected), nil
}

func validateDecision(cmd ResolveCommand) error {
	switch cmd.Decision {
	case DecisionApprove, DecisionReject:
		return nil
	case DecisionCorrect:
		if len(cmd.Corrections) == 0 {
			return ErrNoCorrections
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDecision, cmd.Decision)
}

func loadResult(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*verification.Result, error) {
	var outcome string
	var confidence float64
	var fieldsRaw, extractedRaw, confidenceRaw, missingRaw []byte

	err := tx.QueryRowContext(ctx,
		`SELECT outcome, confidence, fields, extracted_data, field_confidence, missing_fields
		 FROM validation_results WHERE id = $1`,
		id,
	).Scan(&outcome, &confidence, &fieldsRaw, &extractedRaw, &confidenceRaw, &missingRaw)
	if err != nil {
		return nil, fmt.Errorf("load base result: %w", err)
	}

	result := &verification.Result{
		Outcome:         verification.Outcome(outcome),
		Confidence:      confidence,
		ExtractedData:   map[string]string{},
		FieldConfidence: map[string]float64{},
		MissingFields:   []string{},
	}

	if len(fieldsRaw) > 0 {
		if err := json.Unmarshal(fieldsRaw, &result.Fields); err != nil {
			return nil, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	if len(extractedRaw) > 0 {
		if err := json.Unmarshal(extractedRaw, &result.ExtractedData); err != nil {
			return nil, fmt.Errorf("unmarshal extracted_data: %w", err)
		}
	}
	if len(confidenceRaw) > 0 {
		if err := json.Unmarshal(confidenceRaw, &result.FieldConfidence); err != nil {
			return nil, fmt.Errorf("unmarshal field_confidence: %w", err)
		}
	}
	if len(missingRaw) > 0 {
		if err := json.Unmarshal(missingRaw, &result.MissingFields); err != nil {
			return nil, fmt.Errorf("unmarshal missing_fields: %w", err)
		}
	}

	return result, nil
}

// applyDecision derives the override snapshot from the base result and
// the reviewer's decision. Corrected fields get the reviewer's value at
// full confidence; the document confidence is recomputed over required
// fields after corrections.
func applyDecision(base *verification.Result, decision string, corrections map[string]string) *verification.Result {
	override := &verification.Result{
		Outcome:         base.Outcome,
		Confidence:      base.Confidence,
		Fields:          slices.Clone(base.Fields),
		ExtractedData:   map[string]string{},
		FieldConfidence: map[string]float64{},
		MissingFields:   slices.Clone(base.MissingFields),
	}
	for k, v := range base.ExtractedData {
		override.ExtractedData[k] = v
	}
	for k, v := range base.FieldConfidence {
		override.FieldConfidence[k] = v
	}

	switch decision {
	case DecisionApprove:
		override.Outcome = verification.OutcomePass

	case DecisionReject:
		override.Outcome = verification.OutcomeFail

	case DecisionCorrect:
		for name, value := range corrections {
			value := value
			override.ExtractedData[name] = value
			override.FieldConfidence[name] = 1.0
			override.MissingFields = slices.DeleteFunc(override.MissingFields, func(m string) bool {
				return m == name
			})
			for i := range override.Fields {
				if override.Fields[i].Name == name {
					override.Fields[i].Text = &value
					override.Fields[i].Confidence = 1.0
					override.Fields[i].Outcome = verification.OutcomePass
				}
			}
		}
		override.Outcome = verification.OutcomePass
		override.Confidence = requiredMean(override.Fields)
	}

	return override
}

func requiredMean(fields []verification.FieldResult) float64 {
	var sum float64
	var count int
	for _, f := range fields {
		if f.Required {
			sum += f.Confidence
			count++
		}
	}
	if count == 0 {
		return 1
	}
	return sum / float64(count)
}

func insertOverride(
	ctx context.Context,
	tx *sql.Tx,
	documentID uuid.UUID,
	version int,
	result *verification.Result,
) (uuid.UUID, int, error) {
	fieldsJSON, err := json.Marshal(result.Fields)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("marshal fields: %w", err)
	}
	extractedJSON, err := json.Marshal(result.ExtractedData)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("marshal extracted_data: %w", err)
	}
	confidenceJSON, err := json.Marshal(result.FieldConfidence)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("marshal field_confidence: %w", err)
	}
	missingJSON, err := json.Marshal(result.MissingFields)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("marshal missing_fields: %w", err)
	}

	var id uuid.UUID
	err = tx.QueryRowContext(ctx,
		`INSERT INTO validation_results(document_id, version, outcome, confidence, fields, extracted_data, field_confidence, missing_fields, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'review')
		 RETURNING id`,
		documentID, version, result.Outcome, result.Confidence,
		fieldsJSON, extractedJSON, confidenceJSON, missingJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("insert override result: %w", err)
	}

	return id, version, nil
}
