package verification

import (
	"context"
	"log/slog"
)

// CrossChecker is the optional enrichment collaborator. Implementations
// compare an extracted field value against a language-model reading of
// the same document region and report agreement.
type CrossChecker interface {
	CrossCheck(ctx context.Context, fieldName, extracted string) (CheckVerdict, error)
}

// Options bundles the tunable constants of the verification core.
type Options struct {
	Match      MatchOptions
	Score      ScoreOptions
	Thresholds Thresholds
}

// Engine runs the full match → score → classify pipeline for one document.
// The engine itself holds no per-document state; Verify may be called
// concurrently from multiple workers.
type Engine struct {
	opts    Options
	checker CrossChecker
	logger  *slog.Logger
}

// NewEngine creates an Engine. checker may be nil, in which case the
// enrichment term is skipped entirely.
func NewEngine(opts Options, checker CrossChecker, logger *slog.Logger) *Engine {
	return &Engine{
		opts:    opts,
		checker: checker,
		logger:  logger.With("system", "verification"),
	}
}

// Verify reconciles OCR blocks against template fields and produces a
// complete Result. Errors are limited to malformed input geometry; an
// unfavorable outcome is a valid result, not an error.
func (e *Engine) Verify(ctx context.Context, fields []Field, blocks []Block) (*Result, error) {
	if len(fields) == 0 {
		return nil, ErrNoFields
	}

	matches, err := Match(blocks, fields, e.opts.Match)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Fields:          make([]FieldResult, 0, len(fields)),
		ExtractedData:   make(map[string]string),
		FieldConfidence: make(map[string]float64),
		MissingFields:   make([]string, 0),
	}

	for _, f := range fields {
		fieldMatches := matches[f.ID]

		fr := FieldResult{
			FieldID:  f.ID,
			Name:     f.Name,
			Required: f.Required,
		}

		if len(fieldMatches) > 0 {
			text := MergedText(fieldMatches)
			fr.Text = &text
			fr.Confidence = Score(fieldMatches, e.crossCheck(ctx, f.Name, text), e.opts.Score)
			result.ExtractedData[f.Name] = text
		} else {
			result.MissingFields = append(result.MissingFields, f.Name)
		}

		fr.Outcome = ClassifyField(fr.Matched(), fr.Confidence, e.opts.Thresholds)
		result.FieldConfidence[f.Name] = fr.Confidence
		result.Fields = append(result.Fields, fr)
	}

	result.Outcome = ClassifyDocument(result.Fields)
	result.Confidence = DocumentConfidence(result.Fields)

	return result, nil
}

// crossCheck consults the enrichment collaborator when configured.
// Enrichment failures degrade to no verdict rather than failing the
// attempt; the base confidence stands on its own.
func (e *Engine) crossCheck(ctx context.Context, fieldName, text string) *CheckVerdict {
	if e.checker == nil || text == "" {
		return nil
	}

	verdict, err := e.checker.CrossCheck(ctx, fieldName, text)
	if err != nil {
		e.logger.Warn("cross-check unavailable", "field", fieldName, "error", err)
		return nil
	}

	return &verdict
}
