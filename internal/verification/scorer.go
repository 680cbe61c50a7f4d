package verification

// ScoreOptions controls how cross-check verdicts adjust base confidence.
type ScoreOptions struct {
	// CheckPenalty multiplies the base confidence when the cross-check
	// disagrees with the extracted text.
	CheckPenalty float64
	// CheckWeight is the weight pulled toward 1.0 when the cross-check
	// agrees: score = (1-w)*base + w.
	CheckWeight float64
}

// CheckVerdict is the outcome of an optional enrichment cross-check
// for a single field.
type CheckVerdict struct {
	Agrees    bool
	Suggested string
}

// Score derives a field confidence in [0,1] from its matched blocks.
// The base is the overlap-weighted mean of block engine confidences;
// a cross-check verdict, when present, penalizes disagreement and
// boosts agreement toward 1. Fields with no matches score exactly 0.
func Score(matches []BlockMatch, verdict *CheckVerdict, opts ScoreOptions) float64 {
	if len(matches) == 0 {
		return 0
	}

	var weighted, weight float64
	for _, m := range matches {
		weighted += m.Overlap * m.Block.Confidence
		weight += m.Overlap
	}
	if weight == 0 {
		return 0
	}

	score := weighted / weight

	if verdict != nil {
		if verdict.Agrees {
			score = (1-opts.CheckWeight)*score + opts.CheckWeight
		} else {
			score *= opts.CheckPenalty
		}
	}

	return clamp01(score)
}

// DocumentConfidence is the unweighted mean of required-field confidences.
// Optional fields never lower the document score by being absent or weak.
// Templates with no required fields score 1.
func DocumentConfidence(results []FieldResult) float64 {
	var sum float64
	var count int

	for _, r := range results {
		if !r.Required {
			continue
		}
		sum += r.Confidence
		count++
	}

	if count == 0 {
		return 1
	}
	return clamp01(sum / float64(count))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
