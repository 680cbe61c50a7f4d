package documents

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/verification"
	"github.com/veridoc/veridoc/pkg/pagination"
	"github.com/veridoc/veridoc/pkg/query"
	"github.com/veridoc/veridoc/pkg/repository"
	"github.com/veridoc/veridoc/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64, allowedTypes []string, canceller Canceller) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize, allowedTypes, canceller)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Filename", "ContentHash")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	if len(cmd.Data) == 0 {
		return nil, ErrInvalidFile
	}

	var templateVersion int
	err := r.db.QueryRowContext(ctx,
		"SELECT version FROM templates WHERE id = $1",
		cmd.TemplateID,
	).Scan(&templateVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTemplateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}

	sum := sha256.Sum256(cmd.Data)
	hash := hex.EncodeToString(sum[:])

	id := uuid.New()
	key := buildStorageKey(id, sanitizeFilename(cmd.Filename))

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := `
		INSERT INTO documents(id, template_id, template_version, filename, content_type, size_bytes, content_hash, page_count, storage_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns

	insertArgs := []any{
		id,
		cmd.TemplateID,
		templateVersion,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		hash,
		cmd.PageCount,
		key,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanDocument)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("document registered",
		"id", d.ID,
		"filename", d.Filename,
		"template_id", d.TemplateID,
		"template_version", d.TemplateVersion,
	)
	return &d, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

func (r *repo) Status(ctx context.Context, id uuid.UUID) (*StatusView, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	attempts, err := repository.QueryMany(ctx, r.db,
		`SELECT id, document_id, number, status, provider, diagnostics, started_at, completed_at
		 FROM verification_attempts WHERE document_id = $1 ORDER BY started_at`,
		[]any{id}, scanAttempt,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	if attempts == nil {
		attempts = []Attempt{}
	}

	view := &StatusView{Document: doc, Attempts: attempts}

	if doc.CurrentResultID != nil {
		result, err := repository.QueryOne(ctx, r.db,
			"SELECT "+resultColumns+" FROM validation_results WHERE id = $1",
			[]any{*doc.CurrentResultID}, scanResult,
		)
		if err != nil {
			return nil, fmt.Errorf("query current result: %w", err)
		}
		view.CurrentResult = &result
	}

	return view, nil
}

func (r *repo) Results(ctx context.Context, id uuid.UUID) ([]ValidationResult, error) {
	if _, err := r.Find(ctx, id); err != nil {
		return nil, err
	}

	results, err := repository.QueryMany(ctx, r.db,
		"SELECT "+resultColumns+" FROM validation_results WHERE document_id = $1 ORDER BY version DESC",
		[]any{id}, scanResult,
	)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	if results == nil {
		results = []ValidationResult{}
	}
	return results, nil
}

func (r *repo) Download(ctx context.Context, id uuid.UUID) ([]byte, string, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, "", err
	}

	reader, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, "", fmt.Errorf("download blob %s: %w", doc.StorageKey, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, "", fmt.Errorf("read blob %s: %w", doc.StorageKey, err)
	}

	return data, doc.ContentType, nil
}

func (r *repo) ClaimNext(ctx context.Context) (*Document, error) {
	q := `
		UPDATE documents
		SET status = 'processing', updated_at = NOW()
		WHERE id = (
			SELECT id FROM documents
			WHERE status = 'queued'
			  AND (next_attempt_at IS NULL OR next_attempt_at <= NOW())
			ORDER BY uploaded_at
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + documentColumns

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, nil, scanDocument)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNonePending
	}
	if err != nil {
		return nil, fmt.Errorf("claim next document: %w", err)
	}

	return &d, nil
}

func (r *repo) CommitSnapshot(ctx context.Context, cmd SnapshotCommand) (*ValidationResult, error) {
	payload, err := marshalResult(cmd.Result)
	if err != nil {
		return nil, err
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ValidationResult, error) {
		doc, err := lockDocument(ctx, tx, cmd.DocumentID)
		if err != nil {
			return ValidationResult{}, err
		}
		if doc.Status != StatusProcessing {
			return ValidationResult{}, fmt.Errorf("%w: %s is not processing", ErrInvalidTransition, doc.Status)
		}

		vr, err := insertResult(ctx, tx, cmd.DocumentID, doc.ResultVersion+1, cmd.Result.Outcome, SourceEngine, payload)
		if err != nil {
			return ValidationResult{}, err
		}

		if err := insertAttempt(ctx, tx, cmd.DocumentID, AttemptCompleted, cmd.Provider, nil, cmd.StartedAt); err != nil {
			return ValidationResult{}, err
		}

		status := OutcomeStatus(cmd.Result.Outcome)
		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents
			 SET status = $1, result_version = $2, current_result_id = $3,
				 last_error = NULL, next_attempt_at = NULL, updated_at = NOW()
			 WHERE id = $4`,
			status, vr.Version, vr.ID, cmd.DocumentID,
		); err != nil {
			return ValidationResult{}, fmt.Errorf("advance document: %w", err)
		}

		return vr, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("snapshot committed",
		"document_id", cmd.DocumentID,
		"version", result.Version,
		"outcome", result.Outcome,
		"confidence", result.Confidence,
	)
	return &result, nil
}

func (r *repo) CommitOverride(ctx context.Context, cmd OverrideCommand) (*ValidationResult, error) {
	payload, err := marshalResult(cmd.Result)
	if err != nil {
		return nil, err
	}

	result, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ValidationResult, error) {
		doc, err := lockDocument(ctx, tx, cmd.DocumentID)
		if err != nil {
			return ValidationResult{}, err
		}
		if doc.Status != StatusNeedsReview {
			return ValidationResult{}, fmt.Errorf("%w: %s is not pending review", ErrInvalidTransition, doc.Status)
		}

		vr, err := insertResult(ctx, tx, cmd.DocumentID, doc.ResultVersion+1, cmd.Result.Outcome, SourceReview, payload)
		if err != nil {
			return ValidationResult{}, err
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents
			 SET status = 'finalized', result_version = $1, current_result_id = $2, updated_at = NOW()
			 WHERE id = $3`,
			vr.Version, vr.ID, cmd.DocumentID,
		); err != nil {
			return ValidationResult{}, fmt.Errorf("finalize document: %w", err)
		}

		return vr, nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("override snapshot committed",
		"document_id", cmd.DocumentID,
		"version", result.Version,
		"outcome", result.Outcome,
	)
	return &result, nil
}

func (r *repo) MarkError(
	ctx context.Context,
	id uuid.UUID,
	diagnostics, provider string,
	startedAt time.Time,
	retryable bool,
	nextAttempt time.Time,
) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		doc, err := lockDocument(ctx, tx, id)
		if err != nil {
			return struct{}{}, err
		}
		if !CanTransition(doc.Status, StatusError) {
			return struct{}{}, fmt.Errorf("%w: %s to error", ErrInvalidTransition, doc.Status)
		}

		if err := insertAttempt(ctx, tx, id, AttemptError, provider, &diagnostics, startedAt); err != nil {
			return struct{}{}, err
		}

		var next *time.Time
		retryIncrement := 0
		if retryable {
			next = &nextAttempt
			retryIncrement = 1
		}

		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents
			 SET status = 'error', retry_count = retry_count + $1,
				 next_attempt_at = $2, last_error = $3, updated_at = NOW()
			 WHERE id = $4`,
			retryIncrement, next, diagnostics, id,
		); err != nil {
			return struct{}{}, fmt.Errorf("mark error: %w", err)
		}

		return struct{}{}, nil
	})

	if err != nil {
		return err
	}

	r.logger.Warn("document errored", "id", id, "retryable", retryable, "diagnostics", diagnostics)
	return nil
}

func (r *repo) RequeueDue(ctx context.Context, retryBudget int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents
		 SET status = 'queued', updated_at = NOW()
		 WHERE status = 'error'
		   AND retry_count <= $1
		   AND next_attempt_at IS NOT NULL
		   AND next_attempt_at <= NOW()`,
		retryBudget,
	)
	if err != nil {
		return 0, fmt.Errorf("requeue due documents: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("requeue rows affected: %w", err)
	}

	if affected > 0 {
		r.logger.Info("documents requeued", "count", affected)
	}
	return int(affected), nil
}

func (r *repo) ReclaimStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	result, err := r.db.ExecContext(ctx,
		`UPDATE documents
		 SET status = 'error', retry_count = retry_count + 1,
			 next_attempt_at = NOW(), last_error = 'processing lease expired',
			 updated_at = NOW()
		 WHERE status = 'processing'
		   AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale documents: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reclaim rows affected: %w", err)
	}

	if affected > 0 {
		r.logger.Warn("stale processing documents reclaimed", "count", affected)
	}
	return int(affected), nil
}

func (r *repo) Finalize(ctx context.Context, id uuid.UUID, enqueue func(tx *sql.Tx) error) (*Document, error) {
	q := `
		UPDATE documents
		SET status = 'finalized', updated_at = NOW()
		WHERE id = $1 AND status IN ('validated', 'failed')
		RETURNING ` + documentColumns

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		d, err := repository.QueryOne(ctx, tx, q, []any{id}, scanDocument)
		if err != nil {
			return d, err
		}
		if enqueue != nil {
			if err := enqueue(tx); err != nil {
				return d, fmt.Errorf("enqueue finalization: %w", err)
			}
		}
		return d, nil
	})

	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("finalize document: %w", err)
	}

	r.logger.Info("document finalized", "id", d.ID)
	return &d, nil
}

func (r *repo) Reprocess(ctx context.Context, id uuid.UUID) (*Document, error) {
	q := `
		UPDATE documents
		SET status = 'queued', retry_count = 0, next_attempt_at = NULL,
			last_error = NULL, updated_at = NOW()
		WHERE id = $1 AND status IN ('finalized', 'failed', 'error')
		RETURNING ` + documentColumns

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, []any{id}, scanDocument)
	})

	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return nil, findErr
		}
		return nil, ErrInvalidTransition
	}
	if err != nil {
		return nil, fmt.Errorf("reprocess document: %w", err)
	}

	r.logger.Info("document reprocess queued", "id", d.ID)
	return &d, nil
}

func (r *repo) CancelQueued(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			`UPDATE documents
			 SET status = 'error', last_error = 'canceled before processing',
				 next_attempt_at = NULL, updated_at = NOW()
			 WHERE id = $1 AND status = 'queued'`,
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if errors.Is(err, sql.ErrNoRows) {
		if _, findErr := r.Find(ctx, id); findErr != nil {
			return findErr
		}
		return ErrInvalidTransition
	}
	if err != nil {
		return fmt.Errorf("cancel queued document: %w", err)
	}

	r.logger.Info("queued document canceled", "id", id)
	return nil
}

type lockedDocument struct {
	Status        Status
	ResultVersion int
	RetryCount    int
}

func lockDocument(ctx context.Context, tx *sql.Tx, id uuid.UUID) (lockedDocument, error) {
	var doc lockedDocument
	err := tx.QueryRowContext(ctx,
		"SELECT status, result_version, retry_count FROM documents WHERE id = $1 FOR UPDATE",
		id,
	).Scan(&doc.Status, &doc.ResultVersion, &doc.RetryCount)

	if errors.Is(err, sql.ErrNoRows) {
		return doc, ErrNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("lock document: %w", err)
	}
	return doc, nil
}

type resultPayload struct {
	confidence float64
	fields     []byte
	extracted  []byte
	perField   []byte
	missing    []byte
}

func marshalResult(result *verification.Result) (resultPayload, error) {
	var p resultPayload
	var err error

	p.confidence = result.Confidence
	if p.fields, err = json.Marshal(result.Fields); err != nil {
		return p, fmt.Errorf("marshal fields: %w", err)
	}
	if p.extracted, err = json.Marshal(result.ExtractedData); err != nil {
		return p, fmt.Errorf("marshal extracted_data: %w", err)
	}
	if p.perField, err = json.Marshal(result.FieldConfidence); err != nil {
		return p, fmt.Errorf("marshal field_confidence: %w", err)
	}
	if p.missing, err = json.Marshal(result.MissingFields); err != nil {
		return p, fmt.Errorf("marshal missing_fields: %w", err)
	}
	return p, nil
}

func insertResult(
	ctx context.Context,
	tx *sql.Tx,
	documentID uuid.UUID,
	version int,
	outcome verification.Outcome,
	source string,
	payload resultPayload,
) (ValidationResult, error) {
	q := `
		INSERT INTO validation_results(document_id, version, outcome, confidence, fields, extracted_data, field_confidence, missing_fields, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + resultColumns

	vr, err := repository.QueryOne(ctx, tx, q,
		[]any{documentID, version, outcome, payload.confidence, payload.fields, payload.extracted, payload.perField, payload.missing, source},
		scanResult,
	)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("insert validation result: %w", err)
	}
	return vr, nil
}

func insertAttempt(
	ctx context.Context,
	tx *sql.Tx,
	documentID uuid.UUID,
	status, provider string,
	diagnostics *string,
	startedAt time.Time,
) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO verification_attempts(document_id, number, status, provider, diagnostics, started_at, completed_at)
		 VALUES ($1,
			 (SELECT COALESCE(MAX(number), 0) + 1 FROM verification_attempts WHERE document_id = $1),
			 $2, $3, $4, $5, NOW())`,
		documentID, status, provider, diagnostics, startedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, filename)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}
