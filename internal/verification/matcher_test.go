package verification_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/veridoc/veridoc/internal/verification"
)

var (
	fieldName = verification.Field{
		ID:       uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Name:     "name",
		Box:      verification.BoundingBox{X1: 100, Y1: 50, X2: 300, Y2: 80},
		Required: true,
	}
	fieldDate = verification.Field{
		ID:       uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		Name:     "date",
		Box:      verification.BoundingBox{X1: 400, Y1: 100, X2: 600, Y2: 130},
		Required: true,
	}
)

func block(x1, y1, x2, y2 float64, text string, conf float64) verification.Block {
	return verification.Block{
		Page:       1,
		Box:        verification.BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2},
		Text:       text,
		Confidence: conf,
	}
}

func TestMatchBindsOverlappingBlocks(t *testing.T) {
	blocks := []verification.Block{
		block(105, 52, 295, 78, "Jane Doe", 0.95),
		block(405, 102, 595, 128, "2023-10-26", 0.90),
	}

	matches, err := verification.Match(blocks, []verification.Field{fieldName, fieldDate}, verification.MatchOptions{MinOverlap: 0.10})
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("matched fields: got %d, want 2", len(matches))
	}
	if got := verification.MergedText(matches[fieldName.ID]); got != "Jane Doe" {
		t.Errorf("name text: got %q", got)
	}
	if got := verification.MergedText(matches[fieldDate.ID]); got != "2023-10-26" {
		t.Errorf("date text: got %q", got)
	}
}

func TestMatchDiscardsBelowThreshold(t *testing.T) {
	// A sliver of overlap in one corner, well under 10% IoU.
	blocks := []verification.Block{
		block(295, 75, 500, 200, "noise", 0.99),
	}

	matches, err := verification.Match(blocks, []verification.Field{fieldName}, verification.MatchOptions{MinOverlap: 0.10})
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	if len(matches) != 0 {
		t.Errorf("expected no match, got %d", len(matches))
	}
}

func TestMatchMergesInReadingOrder(t *testing.T) {
	field := verification.Field{
		ID:   uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		Name: "address",
		Box:  verification.BoundingBox{X1: 0, Y1: 0, X2: 400, Y2: 200},
	}

	// Deliberately out of order: second line first, then the two
	// halves of the first line right-to-left.
	blocks := []verification.Block{
		block(10, 110, 390, 190, "Springfield", 0.9),
		block(210, 10, 390, 90, "Street", 0.9),
		block(10, 10, 190, 90, "42 Main", 0.9),
	}

	matches, err := verification.Match(blocks, []verification.Field{field}, verification.MatchOptions{MinOverlap: 0.10})
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	if got := verification.MergedText(matches[field.ID]); got != "42 Main Street Springfield" {
		t.Errorf("merged text: got %q", got)
	}
}

func TestMatchBlockServesMultipleFields(t *testing.T) {
	left := verification.Field{
		ID:   uuid.MustParse("44444444-4444-4444-4444-444444444444"),
		Name: "left",
		Box:  verification.BoundingBox{X1: 0, Y1: 0, X2: 120, Y2: 100},
	}
	right := verification.Field{
		ID:   uuid.MustParse("55555555-5555-5555-5555-555555555555"),
		Name: "right",
		Box:  verification.BoundingBox{X1: 80, Y1: 0, X2: 200, Y2: 100},
	}

	blocks := []verification.Block{
		block(0, 0, 200, 100, "shared", 0.9),
	}

	matches, err := verification.Match(blocks, []verification.Field{left, right}, verification.MatchOptions{MinOverlap: 0.10})
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	if len(matches) != 2 {
		t.Fatalf("matched fields: got %d, want 2", len(matches))
	}
	if verification.MergedText(matches[left.ID]) != "shared" || verification.MergedText(matches[right.ID]) != "shared" {
		t.Error("block text should be duplicated across both fields")
	}
}

func TestMatchRespectsPages(t *testing.T) {
	pageTwo := verification.Field{
		ID:   uuid.MustParse("66666666-6666-6666-6666-666666666666"),
		Name: "page_two_field",
		Page: 2,
		Box:  verification.BoundingBox{X1: 0, Y1: 0, X2: 100, Y2: 100},
	}

	b := block(0, 0, 100, 100, "page one text", 0.9)

	matches, err := verification.Match([]verification.Block{b}, []verification.Field{pageTwo}, verification.MatchOptions{MinOverlap: 0.10})
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	if len(matches) != 0 {
		t.Error("block on page 1 must not match a field on page 2")
	}
}

func TestMatchDeterministic(t *testing.T) {
	blocks := []verification.Block{
		block(105, 52, 295, 78, "Jane Doe", 0.95),
		block(120, 55, 290, 79, "Doe", 0.80),
		block(405, 102, 595, 128, "2023-10-26", 0.90),
	}
	fields := []verification.Field{fieldName, fieldDate}
	opts := verification.MatchOptions{MinOverlap: 0.10}

	first, err := verification.Match(blocks, fields, opts)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	second, err := verification.Match(blocks, fields, opts)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("matching is not deterministic for identical input")
	}
}

func TestMatchRejectsMalformedGeometry(t *testing.T) {
	tests := []struct {
		name   string
		blocks []verification.Block
		fields []verification.Field
		want   error
	}{
		{
			name:   "inverted field box",
			fields: []verification.Field{{ID: uuid.New(), Name: "bad", Box: verification.BoundingBox{X1: 10, Y1: 10, X2: 5, Y2: 20}}},
			want:   verification.ErrInvalidBounds,
		},
		{
			name:   "zero-height block",
			fields: []verification.Field{fieldName},
			blocks: []verification.Block{{Page: 1, Box: verification.BoundingBox{X1: 0, Y1: 10, X2: 5, Y2: 10}}},
			want:   verification.ErrInvalidBounds,
		},
		{
			name:   "zero page",
			fields: []verification.Field{fieldName},
			blocks: []verification.Block{{Page: 0, Box: verification.BoundingBox{X1: 0, Y1: 0, X2: 5, Y2: 5}}},
			want:   verification.ErrInvalidPage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := verification.Match(tt.blocks, tt.fields, verification.MatchOptions{MinOverlap: 0.10})
			if !errors.Is(err, tt.want) {
				t.Errorf("error: got %v, want %v", err, tt.want)
			}
		})
	}
}
