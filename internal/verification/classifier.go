package verification

// Thresholds are the deployment-level confidence cutoffs for classification.
// Fields below Fail fail outright; fields in [Fail, Pass) need review.
type Thresholds struct {
	Fail float64
	Pass float64
}

// ClassifyField classifies a single field from its match state and confidence.
// Unmatched fields are missing; matched fields fall into fail/review/pass
// bands by confidence.
func ClassifyField(matched bool, confidence float64, t Thresholds) Outcome {
	if !matched {
		return OutcomeMissing
	}

	switch {
	case confidence < t.Fail:
		return OutcomeFail
	case confidence < t.Pass:
		return OutcomeReview
	default:
		return OutcomePass
	}
}

// ClassifyDocument reduces field results to a document-level outcome.
// Any required field that is missing or failed fails the document; any
// review-band field (or a failed optional field) sends it to review;
// otherwise it passes. Optional unmatched fields never block a pass.
// The reduction is order-independent and idempotent.
func ClassifyDocument(results []FieldResult) Outcome {
	review := false

	for _, r := range results {
		switch r.Outcome {
		case OutcomeMissing:
			if r.Required {
				return OutcomeFail
			}
		case OutcomeFail:
			if r.Required {
				return OutcomeFail
			}
			review = true
		case OutcomeReview:
			review = true
		}
	}

	if review {
		return OutcomeReview
	}
	return OutcomePass
}
