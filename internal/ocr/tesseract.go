package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/veridoc/veridoc/internal/verification"
)

// tesseract runs OCR locally through the gosseract binding. A fresh
// client is created per recognition; gosseract clients are not safe
// for concurrent use.
type tesseract struct {
	languages []string
	logger    *slog.Logger
	factory   func() *gosseract.Client
}

func newTesseract(cfg *Config, logger *slog.Logger) *tesseract {
	return &tesseract{
		languages: cfg.Languages,
		logger:    logger.With("system", "ocr", "provider", ProviderTesseract),
		factory:   gosseract.NewClient,
	}
}

func (t *tesseract) Name() string {
	return ProviderTesseract
}

func (t *tesseract) Recognize(ctx context.Context, data []byte, contentType string) ([]verification.Block, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	client := t.factory()
	defer client.Close()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("%w: set image: %v", ErrUnavailable, err)
	}
	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return nil, fmt.Errorf("%w: set languages: %v", ErrUnavailable, err)
		}
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("%w: recognize: %v", ErrUnavailable, err)
	}

	blocks := make([]verification.Block, 0, len(boxes))
	for _, b := range boxes {
		if b.Word == "" {
			continue
		}
		blocks = append(blocks, verification.Block{
			Page: 1,
			Box: verification.BoundingBox{
				X1: float64(b.Box.Min.X),
				Y1: float64(b.Box.Min.Y),
				X2: float64(b.Box.Max.X),
				Y2: float64(b.Box.Max.Y),
			},
			Text:       b.Word,
			Confidence: b.Confidence / 100.0,
		})
	}

	t.logger.Debug("recognition complete", "blocks", len(blocks))
	return blocks, nil
}
