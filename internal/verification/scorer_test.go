package verification_test

import (
	"math"
	"testing"

	"github.com/veridoc/veridoc/internal/verification"
)

var scoreOpts = verification.ScoreOptions{
	CheckPenalty: 0.5,
	CheckWeight:  0.3,
}

func matchOf(conf, overlap float64) verification.BlockMatch {
	return verification.BlockMatch{
		Block:   block(0, 0, 10, 10, "x", conf),
		Overlap: overlap,
	}
}

func TestScoreWeightedMean(t *testing.T) {
	matches := []verification.BlockMatch{
		matchOf(0.9, 0.6),
		matchOf(0.5, 0.2),
	}

	// (0.6*0.9 + 0.2*0.5) / 0.8 = 0.8
	got := verification.Score(matches, nil, scoreOpts)
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("score: got %f, want 0.8", got)
	}
}

func TestScoreUnmatchedIsZero(t *testing.T) {
	if got := verification.Score(nil, nil, scoreOpts); got != 0 {
		t.Errorf("score: got %f, want 0", got)
	}
}

func TestScoreCrossCheckAdjustments(t *testing.T) {
	matches := []verification.BlockMatch{matchOf(0.8, 1.0)}

	tests := []struct {
		name    string
		verdict *verification.CheckVerdict
		want    float64
	}{
		{"no verdict", nil, 0.8},
		{"agreement boosts", &verification.CheckVerdict{Agrees: true}, 0.7*0.8 + 0.3},
		{"disagreement penalizes", &verification.CheckVerdict{Agrees: false}, 0.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := verification.Score(matches, tt.verdict, scoreOpts)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("score: got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestScoreStaysInUnitInterval(t *testing.T) {
	// Engine confidences should already be within [0,1], but the score
	// must clamp even when a provider reports out-of-range values.
	matches := []verification.BlockMatch{matchOf(1.4, 1.0)}

	got := verification.Score(matches, &verification.CheckVerdict{Agrees: true}, scoreOpts)
	if got < 0 || got > 1 {
		t.Errorf("score out of range: %f", got)
	}
}

func TestDocumentConfidenceRequiredOnly(t *testing.T) {
	text := "x"
	results := []verification.FieldResult{
		{Name: "a", Required: true, Text: &text, Confidence: 0.9},
		{Name: "b", Required: true, Text: &text, Confidence: 0.7},
		{Name: "c", Required: false, Confidence: 0},
	}

	// The absent optional field must not drag the mean down.
	got := verification.DocumentConfidence(results)
	if math.Abs(got-0.8) > 1e-9 {
		t.Errorf("document confidence: got %f, want 0.8", got)
	}
}

func TestDocumentConfidenceNoRequiredFields(t *testing.T) {
	results := []verification.FieldResult{
		{Name: "a", Required: false, Confidence: 0.2},
	}

	if got := verification.DocumentConfidence(results); got != 1 {
		t.Errorf("document confidence: got %f, want 1", got)
	}
}
