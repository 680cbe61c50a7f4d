package verification_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/veridoc/veridoc/internal/verification"
)

var engineOpts = verification.Options{
	Match:      verification.MatchOptions{MinOverlap: 0.10},
	Score:      verification.ScoreOptions{CheckPenalty: 0.5, CheckWeight: 0.3},
	Thresholds: verification.Thresholds{Fail: 0.5, Pass: 0.85},
}

type stubChecker struct {
	agrees bool
	err    error
	calls  int
}

func (s *stubChecker) CrossCheck(_ context.Context, _, _ string) (verification.CheckVerdict, error) {
	s.calls++
	if s.err != nil {
		return verification.CheckVerdict{}, s.err
	}
	return verification.CheckVerdict{Agrees: s.agrees}, nil
}

func newEngine(checker verification.CrossChecker) *verification.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return verification.NewEngine(engineOpts, checker, logger)
}

func TestVerifyPassScenario(t *testing.T) {
	blocks := []verification.Block{
		block(105, 52, 295, 78, "Jane Doe", 0.95),
		block(405, 102, 595, 128, "2023-10-26", 0.90),
	}

	result, err := newEngine(nil).Verify(context.Background(), []verification.Field{fieldName, fieldDate}, blocks)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if result.Outcome != verification.OutcomePass {
		t.Errorf("outcome: got %s, want pass", result.Outcome)
	}
	if len(result.ExtractedData) != 2 {
		t.Errorf("extracted data entries: got %d, want 2", len(result.ExtractedData))
	}
	if len(result.MissingFields) != 0 {
		t.Errorf("missing fields: got %v, want none", result.MissingFields)
	}
}

func TestVerifyReviewScenario(t *testing.T) {
	blocks := []verification.Block{
		block(105, 52, 295, 78, "Jane Doe", 0.95),
		block(405, 102, 595, 128, "2O23-1O-26", 0.60),
	}

	result, err := newEngine(nil).Verify(context.Background(), []verification.Field{fieldName, fieldDate}, blocks)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if result.Outcome != verification.OutcomeReview {
		t.Errorf("outcome: got %s, want review", result.Outcome)
	}
}

func TestVerifyFailScenario(t *testing.T) {
	// Only the name field is covered; the required date field is unmatched.
	blocks := []verification.Block{
		block(105, 52, 295, 78, "Jane Doe", 0.95),
	}

	result, err := newEngine(nil).Verify(context.Background(), []verification.Field{fieldName, fieldDate}, blocks)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if result.Outcome != verification.OutcomeFail {
		t.Errorf("outcome: got %s, want fail", result.Outcome)
	}
	if len(result.MissingFields) != 1 || result.MissingFields[0] != "date" {
		t.Errorf("missing fields: got %v, want [date]", result.MissingFields)
	}
	if result.FieldConfidence["date"] != 0 {
		t.Errorf("unmatched field confidence: got %f, want 0", result.FieldConfidence["date"])
	}
}

func TestVerifyCrossCheckFailureDegrades(t *testing.T) {
	checker := &stubChecker{err: errors.New("provider unavailable")}
	blocks := []verification.Block{
		block(105, 52, 295, 78, "Jane Doe", 0.95),
		block(405, 102, 595, 128, "2023-10-26", 0.90),
	}

	result, err := newEngine(checker).Verify(context.Background(), []verification.Field{fieldName, fieldDate}, blocks)
	if err != nil {
		t.Fatalf("verify must not fail when enrichment is unavailable: %v", err)
	}
	if checker.calls != 2 {
		t.Errorf("cross-check calls: got %d, want 2", checker.calls)
	}
	if result.Outcome != verification.OutcomePass {
		t.Errorf("outcome: got %s, want pass", result.Outcome)
	}
}

func TestVerifyNoFields(t *testing.T) {
	_, err := newEngine(nil).Verify(context.Background(), nil, nil)
	if !errors.Is(err, verification.ErrNoFields) {
		t.Errorf("error: got %v, want ErrNoFields", err)
	}
}
