package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/veridoc/veridoc/internal/verification"
)

// gcv delegates recognition to the Google Cloud Vision document text
// detector. Each word in the annotation becomes one block; paragraph
// geometry is deliberately ignored because template fields bind at
// word granularity.
type gcv struct {
	client *vision.ImageAnnotatorClient
	logger *slog.Logger
}

func newVision(cfg *Config, logger *slog.Logger) (*gcv, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &gcv{
		client: client,
		logger: logger.With("system", "ocr", "provider", ProviderVision),
	}, nil
}

func (g *gcv) Name() string {
	return ProviderVision
}

func (g *gcv) Close() error {
	return g.client.Close()
}

func (g *gcv) Recognize(ctx context.Context, data []byte, contentType string) ([]verification.Block, error) {
	annotation, err := g.client.DetectDocumentText(ctx, &visionpb.Image{Content: data}, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("%w: detect document text: %v", ErrUnavailable, err)
	}
	if annotation == nil {
		return nil, nil
	}

	var blocks []verification.Block
	for i, page := range annotation.Pages {
		pageNumber := i + 1
		for _, block := range page.Blocks {
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					text := wordText(word)
					if text == "" {
						continue
					}
					box, ok := polyBounds(word.BoundingBox)
					if !ok {
						continue
					}
					blocks = append(blocks, verification.Block{
						Page:       pageNumber,
						Box:        box,
						Text:       text,
						Confidence: float64(word.Confidence),
					})
				}
			}
		}
	}

	g.logger.Debug("recognition complete", "pages", len(annotation.Pages), "blocks", len(blocks))
	return blocks, nil
}

func wordText(word *visionpb.Word) string {
	var sb strings.Builder
	for _, symbol := range word.Symbols {
		sb.WriteString(symbol.Text)
	}
	return strings.TrimSpace(sb.String())
}

func polyBounds(poly *visionpb.BoundingPoly) (verification.BoundingBox, bool) {
	if poly == nil || len(poly.Vertices) == 0 {
		return verification.BoundingBox{}, false
	}

	box := verification.BoundingBox{
		X1: float64(poly.Vertices[0].X),
		Y1: float64(poly.Vertices[0].Y),
		X2: float64(poly.Vertices[0].X),
		Y2: float64(poly.Vertices[0].Y),
	}
	for _, v := range poly.Vertices[1:] {
		box.X1 = min(box.X1, float64(v.X))
		box.Y1 = min(box.Y1, float64(v.Y))
		box.X2 = max(box.X2, float64(v.X))
		box.Y2 = max(box.Y2, float64(v.Y))
	}
	return box, box.Valid()
}
