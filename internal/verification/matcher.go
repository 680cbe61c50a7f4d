package verification

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// BlockMatch binds an OCR block to a field with the IoU between them.
type BlockMatch struct {
	Block   Block
	Overlap float64
}

// MatchOptions controls candidate selection for spatial matching.
type MatchOptions struct {
	// MinOverlap is the minimum IoU between a block and a field
	// for the block to qualify as a match candidate.
	MinOverlap float64
}

// Match maps each field to the set of OCR blocks that spatially overlap its
// region on the field's page. Candidates below MinOverlap are discarded;
// a single block may serve multiple fields. Fields with no qualifying block
// are absent from the returned map. The result is a pure function of the
// inputs: identical fields and blocks always produce identical matches.
func Match(blocks []Block, fields []Field, opts MatchOptions) (map[uuid.UUID][]BlockMatch, error) {
	for _, f := range fields {
		if !f.Box.Valid() {
			return nil, fmt.Errorf("field %s: %w", f.Name, ErrInvalidBounds)
		}
	}
	for i, b := range blocks {
		if !b.Box.Valid() {
			return nil, fmt.Errorf("block %d: %w", i, ErrInvalidBounds)
		}
		if b.Page < 1 {
			return nil, fmt.Errorf("block %d: %w", i, ErrInvalidPage)
		}
	}

	matches := make(map[uuid.UUID][]BlockMatch, len(fields))

	for _, f := range fields {
		page := fieldPage(f)

		var candidates []BlockMatch
		for _, b := range blocks {
			if b.Page != page {
				continue
			}
			if iou := f.Box.IoU(b.Box); iou >= opts.MinOverlap {
				candidates = append(candidates, BlockMatch{Block: b, Overlap: iou})
			}
		}

		if len(candidates) == 0 {
			continue
		}

		sortReadingOrder(candidates)
		matches[f.ID] = candidates
	}

	return matches, nil
}

// MergedText joins the matched block texts in reading order into the
// single extracted value for a field.
func MergedText(matches []BlockMatch) string {
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		if text := strings.TrimSpace(m.Block.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// sortReadingOrder orders blocks top-to-bottom, then left-to-right.
// Ties fall back to the block text so the order is total and stable
// across runs regardless of input ordering.
func sortReadingOrder(matches []BlockMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i].Block, matches[j].Block
		if a.Box.Y1 != b.Box.Y1 {
			return a.Box.Y1 < b.Box.Y1
		}
		if a.Box.X1 != b.Box.X1 {
			return a.Box.X1 < b.Box.X1
		}
		return a.Text < b.Text
	})
}
