package review

import (
	"errors"
	"slices"
	"testing"

	"github.com/veridoc/veridoc/internal/verification"
)

func TestDerivePriority(t *testing.T) {
	cfg := Config{HighBelow: 0.6, MediumBelow: 0.75}

	tests := []struct {
		name       string
		confidence float64
		missing    int
		want       int
	}{
		{"high confidence", 0.8, 0, 1},
		{"medium band", 0.7, 0, 2},
		{"low band", 0.5, 0, 3},
		{"medium boundary", 0.75, 0, 1},
		{"high boundary", 0.6, 0, 2},
		{"missing fields add", 0.5, 2, 5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := cfg.DerivePriority(tc.confidence, tc.missing); got != tc.want {
				t.Errorf("DerivePriority(%v, %d) = %d, want %d", tc.confidence, tc.missing, got, tc.want)
			}
		})
	}
}

func TestValidateDecision(t *testing.T) {
	tests := []struct {
		name    string
		cmd     ResolveCommand
		wantErr error
	}{
		{"approve", ResolveCommand{Decision: DecisionApprove}, nil},
		{"reject", ResolveCommand{Decision: DecisionReject}, nil},
		{
			"correct with corrections",
			ResolveCommand{Decision: DecisionCorrect, Corrections: map[string]string{"total": "42.00"}},
			nil,
		},
		{"correct without corrections", ResolveCommand{Decision: DecisionCorrect}, ErrNoCorrections},
		{"unknown decision", ResolveCommand{Decision: "escalate"}, ErrInvalidDecision},
		{"empty decision", ResolveCommand{}, ErrInvalidDecision},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateDecision(tc.cmd)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func baseResult() *verification.Result {
	text := "Jane Doe"
	return &verification.Result{
		Outcome:    verification.OutcomeReview,
		Confidence: 0.7,
		Fields: []verification.FieldResult{
			{Name: "name", Required: true, Text: &text, Confidence: 0.7, Outcome: verification.OutcomeReview},
			{Name: "date", Required: true, Confidence: 0, Outcome: verification.OutcomeMissing},
		},
		ExtractedData:   map[string]string{"name": "Jane Doe"},
		FieldConfidence: map[string]float64{"name": 0.7, "date": 0},
		MissingFields:   []string{"date"},
	}
}

func TestApplyDecisionApprove(t *testing.T) {
	override := applyDecision(baseResult(), DecisionApprove, nil)

	if override.Outcome != verification.OutcomePass {
		t.Errorf("outcome = %s, want pass", override.Outcome)
	}
	if override.Confidence != 0.7 {
		t.Errorf("confidence = %v, want 0.7", override.Confidence)
	}
	if override.ExtractedData["name"] != "Jane Doe" {
		t.Errorf("extracted data changed: %v", override.ExtractedData)
	}
}

func TestApplyDecisionReject(t *testing.T) {
	override := applyDecision(baseResult(), DecisionReject, nil)

	if override.Outcome != verification.OutcomeFail {
		t.Errorf("outcome = %s, want fail", override.Outcome)
	}
}

func TestApplyDecisionCorrect(t *testing.T) {
	override := applyDecision(baseResult(), DecisionCorrect, map[string]string{"date": "2024-03-15"})

	if override.Outcome != verification.OutcomePass {
		t.Errorf("outcome = %s, want pass", override.Outcome)
	}
	if override.ExtractedData["date"] != "2024-03-15" {
		t.Errorf("extracted date = %q, want corrected value", override.ExtractedData["date"])
	}
	if override.FieldConfidence["date"] != 1.0 {
		t.Errorf("date confidence = %v, want 1.0", override.FieldConfidence["date"])
	}
	if slices.Contains(override.MissingFields, "date") {
		t.Error("date still listed missing after correction")
	}

	for _, f := range override.Fields {
		if f.Name != "date" {
			continue
		}
		if f.Text == nil || *f.Text != "2024-03-15" {
			t.Errorf("field text = %v, want corrected value", f.Text)
		}
		if f.Outcome != verification.OutcomePass {
			t.Errorf("field outcome = %s, want pass", f.Outcome)
		}
	}

	// (0.7 + 1.0) / 2 over the two required fields.
	if override.Confidence != 0.85 {
		t.Errorf("confidence = %v, want 0.85", override.Confidence)
	}
}

func TestApplyDecisionLeavesBaseUntouched(t *testing.T) {
	base := baseResult()
	applyDecision(base, DecisionCorrect, map[string]string{"date": "2024-03-15"})

	if base.Outcome != verification.OutcomeReview {
		t.Errorf("base outcome mutated: %s", base.Outcome)
	}
	if _, ok := base.ExtractedData["date"]; ok {
		t.Error("base extracted data mutated")
	}
	if !slices.Contains(base.MissingFields, "date") {
		t.Error("base missing fields mutated")
	}
}

func TestConfigFinalize(t *testing.T) {
	cfg := &Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.HighBelow != 0.6 || cfg.MediumBelow != 0.75 {
		t.Errorf("bands = %v/%v, want 0.6/0.75", cfg.HighBelow, cfg.MediumBelow)
	}
	if cfg.SLAWindow().Hours() != 24 {
		t.Errorf("sla = %v, want 24h", cfg.SLAWindow())
	}

	cfg = &Config{SLA: "banana"}
	if err := cfg.Finalize(nil); err == nil {
		t.Fatal("expected error for unparseable sla")
	}

	cfg = &Config{HighBelow: 0.9, MediumBelow: 0.5}
	if err := cfg.Finalize(nil); err == nil {
		t.Fatal("expected error for inverted bands")
	}
}
