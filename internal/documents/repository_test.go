package documents

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

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

func seedProcessing(t *testing.T, db *sql.DB, updatedAt time.Time) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	var templateID uuid.UUID
	err := db.QueryRowContext(ctx,
		`INSERT INTO templates(name) VALUES ($1) RETURNING id`,
		"receipt-"+uuid.NewString(),
	).Scan(&templateID)
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}

	docID := uuid.New()
	_, err = db.ExecContext(ctx,
		`INSERT INTO documents(
			id, template_id, template_version, filename, content_type,
			size_bytes, content_hash, storage_key, status, updated_at
		 ) VALUES ($1, $2, 1, 'scan.png', 'image/png', 2048, $3, $4, 'processing', $5)`,
		docID, templateID, uuid.NewString(), "documents/"+docID.String(), updatedAt,
	)
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	t.Cleanup(func() {
		db.ExecContext(context.Background(), `DELETE FROM documents WHERE id = $1`, docID)
		db.ExecContext(context.Background(), `DELETE FROM templates WHERE id = $1`, templateID)
	})

	return docID
}

func TestReclaimStale(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	system := New(db, nil, logger, pagination.Config{})

	staleID := seedProcessing(t, db, time.Now().UTC().Add(-10*time.Minute))
	freshID := seedProcessing(t, db, time.Now().UTC())

	reclaimed, err := system.ReclaimStale(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("ReclaimStale() error = %v", err)
	}
	if reclaimed < 1 {
		t.Fatalf("reclaimed = %d, want at least 1", reclaimed)
	}

	var status string
	var retryCount int
	var nextAttempt *time.Time
	var lastError *string
	err = db.QueryRowContext(ctx,
		`SELECT status, retry_count, next_attempt_at, last_error FROM documents WHERE id = $1`,
		staleID,
	).Scan(&status, &retryCount, &nextAttempt, &lastError)
	if err != nil {
		t.Fatalf("read stale document: %v", err)
	}
	if status != string(StatusError) {
		t.Errorf("stale status = %s, want %s", status, StatusError)
	}
	if retryCount != 1 {
		t.Errorf("retry_count = %d, want 1", retryCount)
	}
	if nextAttempt == nil {
		t.Error("next_attempt_at not set on reclaimed document")
	}
	if lastError == nil {
		t.Error("last_error not set on reclaimed document")
	}

	if err := db.QueryRowContext(ctx,
		`SELECT status FROM documents WHERE id = $1`, freshID,
	).Scan(&status); err != nil {
		t.Fatalf("read fresh document: %v", err)
	}
	if status != string(StatusProcessing) {
		t.Errorf("fresh status = %s, want %s", status, StatusProcessing)
	}
}
