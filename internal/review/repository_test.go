package review

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/veridoc/veridoc/internal/webhooks"
	"github.com/veridoc/veridoc/pkg/pagination"
)

// Integration tests below need a migrated database. They are skipped
// unless VERIDOC_TEST_DSN points at one.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("VERIDOC_TEST_DSN")
	if dsn == "" {
		t.Skip("VERIDOC_TEST_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Ping(); err != nil {
		t.Fatalf("ping database: %v", err)
	}
	return db
}

type nopDispatcher struct{}

func (nopDispatcher) EnqueueFinalized(context.Context, *sql.Tx, webhooks.Payload) ([]webhooks.Delivery, error) {
	return nil, nil
}

func (nopDispatcher) Deliver(context.Context, []webhooks.Delivery) {}

func testSystem(t *testing.T, db *sql.DB) System {
	t.Helper()

	cfg := Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(db, cfg, nopDispatcher{}, logger, pagination.Config{})
}

// seedReviewable inserts a template, a needs_review document, and its
// engine result, returning the document and result ids. Rows cascade
// away when the document is deleted in cleanup.
func seedReviewable(t *testing.T, db *sql.DB) (uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()

	var templateID uuid.UUID
	err := db.QueryRowContext(ctx,
		`INSERT INTO templates(name) VALUES ($1) RETURNING id`,
		"invoice-"+uuid.NewString(),
	).Scan(&templateID)
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}

	docID := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO documents(
			id, template_id, template_version, filename, content_type,
			size_bytes, content_hash, storage_key, status, result_version
		 ) VALUES ($1, $2, 1, 'scan.png', 'image/png', 2048, $3, $4, 'needs_review', 1)`,
		docID, templateID, uuid.NewString(), "documents/"+docID.String(),
	)
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	var resultID uuid.UUID
	err = db.QueryRowContext(ctx,
		`INSERT INTO validation_results(document_id, version, outcome, confidence, source)
		 VALUES ($1, 1, 'review', 0.7, 'engine')
		 RETURNING id`,
		docID,
	).Scan(&resultID)
	if err != nil {
		t.Fatalf("seed result: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		`UPDATE documents SET current_result_id = $1 WHERE id = $2`,
		resultID, docID,
	); err != nil {
		t.Fatalf("link result: %v", err)
	}

	t.Cleanup(func() {
		db.ExecContext(context.Background(),
			`UPDATE documents SET current_result_id = NULL WHERE id = $1`, docID)
		db.ExecContext(context.Background(), `DELETE FROM documents WHERE id = $1`, docID)
		db.ExecContext(context.Background(), `DELETE FROM templates WHERE id = $1`, templateID)
	})

	return docID, resultID
}

func TestClaimAssignsEachItemOnce(t *testing.T) {
	db := testDB(t)
	system := testSystem(t, db)
	ctx := context.Background()

	docID, resultID := seedReviewable(t, db)

	item, err := system.Enqueue(ctx, EnqueueCommand{
		DocumentID: docID,
		ResultID:   resultID,
		Confidence: 0.7,
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	const reviewers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed []*Item
		empty   int
	)

	for i := 0; i < reviewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := system.Claim(ctx, ClaimCommand{ReviewerID: "reviewer-" + uuid.NewString()})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				claimed = append(claimed, got)
			case errors.Is(err, ErrNoneQueued):
				empty++
			default:
				t.Errorf("Claim() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if len(claimed) != 1 {
		t.Fatalf("claimed %d times, want exactly 1", len(claimed))
	}
	if empty != reviewers-1 {
		t.Errorf("got %d empty-queue claims, want %d", empty, reviewers-1)
	}
	if claimed[0].ID != item.ID {
		t.Errorf("claimed item %s, want %s", claimed[0].ID, item.ID)
	}
	if claimed[0].Status != StatusClaimed {
		t.Errorf("status = %s, want %s", claimed[0].Status, StatusClaimed)
	}
	if claimed[0].ReviewerID == nil {
		t.Error("claimed item has no reviewer")
	}
}

func TestResolveExactlyOnce(t *testing.T) {
	db := testDB(t)
	system := testSystem(t, db)
	ctx := context.Background()

	docID, resultID := seedReviewable(t, db)

	item, err := system.Enqueue(ctx, EnqueueCommand{
		DocumentID: docID,
		ResultID:   resultID,
		Confidence: 0.7,
	})
	if err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	if _, err := system.Claim(ctx, ClaimCommand{ReviewerID: "reviewer-1"}); err != nil {
		t.Fatalf("Claim() error = %v", err)
	}

	cmd := ResolveCommand{ReviewerID: "reviewer-1", Decision: DecisionApprove}

	resolved, err := system.Resolve(ctx, item.ID, cmd)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved.Status != StatusResolved {
		t.Errorf("status = %s, want %s", resolved.Status, StatusResolved)
	}

	var docStatus string
	var resultVersion int
	if err := db.QueryRowContext(ctx,
		`SELECT status, result_version FROM documents WHERE id = $1`, docID,
	).Scan(&docStatus, &resultVersion); err != nil {
		t.Fatalf("read document: %v", err)
	}
	if docStatus != "finalized" {
		t.Errorf("document status = %s, want finalized", docStatus)
	}
	if resultVersion != 2 {
		t.Errorf("result_version = %d, want 2", resultVersion)
	}

	if _, err := system.Resolve(ctx, item.ID, cmd); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("second Resolve() error = %v, want ErrAlreadyResolved", err)
	}
}
