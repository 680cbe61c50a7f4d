// Package processing drives the verification state machine: a worker pool
// polls the document queue, runs OCR and the verification engine under a
// per-document lease, commits the outcome snapshot, and routes the result
// to review or finalization.
package processing

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/veridoc/veridoc/internal/documents"
	"github.com/veridoc/veridoc/internal/review"
	"github.com/veridoc/veridoc/internal/templates"
	"github.com/veridoc/veridoc/internal/verification"
	"github.com/veridoc/veridoc/internal/webhooks"
	"github.com/veridoc/veridoc/pkg/lifecycle"
)

// Processor runs the verification pipeline for queued documents.
type Processor struct {
	docs      documents.System
	templates templates.System
	provider  ocrProvider
	engine    *verification.Engine
	review    review.System
	webhooks  webhooks.System
	leases    *LeaseRegistry
	cfg       Config
	logger    *slog.Logger
}

type ocrProvider interface {
	Recognize(ctx context.Context, data []byte, contentType string) ([]verification.Block, error)
	Name() string
}

// New creates a Processor. The lease registry it creates implements
// documents.Canceller and should be wired to the document handler.
func New(
	docs documents.System,
	tpls templates.System,
	provider ocrProvider,
	engine *verification.Engine,
	rev review.System,
	hooks webhooks.System,
	cfg Config,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		docs:      docs,
		templates: tpls,
		provider:  provider,
		engine:    engine,
		review:    rev,
		webhooks:  hooks,
		leases:    NewLeaseRegistry(),
		cfg:       cfg,
		logger:    logger.With("system", "processing"),
	}
}

// Leases exposes the registry for cancellation wiring.
func (p *Processor) Leases() *LeaseRegistry {
	return p.leases
}

// Start registers the worker loop with the lifecycle coordinator. The
// loop runs until the coordinator's context is cancelled; in-flight
// attempts unwind through their lease contexts.
func (p *Processor) Start(lc *lifecycle.Coordinator) {
	lc.OnStartup(func() {
		go p.Run(lc.Context())
	})
}

// Run polls the queue until ctx is cancelled, processing up to the
// configured number of documents concurrently.
func (p *Processor) Run(ctx context.Context) {
	sem := semaphore.NewWeighted(int64(p.cfg.Workers))
	ticker := time.NewTicker(p.cfg.Poll())
	defer ticker.Stop()

	p.logger.Info("worker pool started",
		"workers", p.cfg.Workers,
		"poll_interval", p.cfg.Poll(),
		"retry_budget", p.cfg.RetryBudget,
	)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker pool stopped")
			return
		case <-ticker.C:
		}

		if _, err := p.docs.ReclaimStale(ctx, p.cfg.StaleWindow()); err != nil {
			p.logger.Error("stale reclaim sweep failed", "error", err)
		}

		if _, err := p.docs.RequeueDue(ctx, p.cfg.RetryBudget); err != nil {
			p.logger.Error("requeue sweep failed", "error", err)
		}

		for {
			doc, err := p.docs.ClaimNext(ctx)
			if err != nil {
				if err != documents.ErrNonePending && ctx.Err() == nil {
					p.logger.Error("claim failed", "error", err)
				}
				break
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}

			go func(doc *documents.Document) {
				defer sem.Release(1)
				p.process(ctx, doc)
			}(doc)
		}
	}
}

func (p *Processor) process(ctx context.Context, doc *documents.Document) {
	started := time.Now().UTC()

	leaseCtx, ok := p.leases.Acquire(ctx, doc.ID)
	if !ok {
		p.logger.Warn("lease already held", "document_id", doc.ID)
		return
	}
	defer p.leases.Release(doc.ID)

	if err := p.run(leaseCtx, doc); err != nil {
		p.fail(ctx, doc, started, err)
		return
	}
}

func (p *Processor) run(ctx context.Context, doc *documents.Document) error {
	tpl, err := p.templates.Find(ctx, doc.TemplateID)
	if err != nil {
		return Input(err)
	}

	data, contentType, err := p.docs.Download(ctx, doc.ID)
	if err != nil {
		return Transient(err)
	}

	blocks, err := p.provider.Recognize(ctx, data, contentType)
	if err != nil {
		return err
	}

	result, err := p.engine.Verify(ctx, tpl.VerificationFields(), blocks)
	if err != nil {
		return err
	}

	vr, err := p.docs.CommitSnapshot(ctx, documents.SnapshotCommand{
		DocumentID: doc.ID,
		Result:     result,
		Provider:   p.provider.Name(),
		StartedAt:  time.Now().UTC(),
	})
	if err != nil {
		return Transient(err)
	}

	p.logger.Info("verification complete",
		"document_id", doc.ID,
		"outcome", result.Outcome,
		"confidence", result.Confidence,
		"version", vr.Version,
	)

	switch result.Outcome {
	case verification.OutcomeReview:
		_, err := p.review.Enqueue(ctx, review.EnqueueCommand{
			DocumentID:      doc.ID,
			ResultID:        vr.ID,
			Confidence:      result.Confidence,
			MissingRequired: requiredMissing(result),
		})
		if err != nil {
			return Transient(err)
		}

	default:
		payload := webhooks.Payload{
			DocumentID:      doc.ID,
			TemplateID:      doc.TemplateID,
			TemplateVersion: doc.TemplateVersion,
			Version:         vr.Version,
			Classification:  string(result.Outcome),
			Confidence:      result.Confidence,
			ExtractedData:   result.ExtractedData,
			FieldConfidence: result.FieldConfidence,
			MissingFields:   result.MissingFields,
			FinalizedAt:     time.Now().UTC(),
		}

		var deliveries []webhooks.Delivery
		if _, err := p.docs.Finalize(ctx, doc.ID, func(tx *sql.Tx) error {
			var err error
			deliveries, err = p.webhooks.EnqueueFinalized(ctx, tx, payload)
			return err
		}); err != nil {
			return Transient(err)
		}

		p.webhooks.Deliver(ctx, deliveries)
	}

	return nil
}

// fail records the attempt failure on the parent context so that a
// cancelled lease does not block persisting the error transition.
func (p *Processor) fail(ctx context.Context, doc *documents.Document, started time.Time, attemptErr error) {
	retryable := Retryable(attemptErr)
	next := time.Now().Add(p.cfg.RetryDelay(doc.RetryCount + 1))

	if err := p.docs.MarkError(
		ctx,
		doc.ID,
		attemptErr.Error(),
		p.provider.Name(),
		started,
		retryable,
		next,
	); err != nil {
		p.logger.Error("error transition failed",
			"document_id", doc.ID,
			"attempt_error", attemptErr,
			"error", err,
		)
	}
}

func requiredMissing(result *verification.Result) int {
	count := 0
	for _, f := range result.Fields {
		if f.Required && f.Outcome == verification.OutcomeMissing {
			count++
		}
	}
	return count
}
