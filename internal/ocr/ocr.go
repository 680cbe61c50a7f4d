// Package ocr defines the OCR collaborator contract and its provider
// implementations. Providers are selected at configuration time; the
// engine treats any provider failure as a transient processing fault.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/veridoc/veridoc/internal/verification"
)

// Provider errors. Both indicate transient conditions eligible for
// state-machine retry.
var (
	ErrUnavailable = errors.New("ocr provider unavailable")
	ErrTimeout     = errors.New("ocr request timed out")
)

// Provider recognizes text regions in a scanned document.
type Provider interface {
	// Recognize extracts text blocks with bounding boxes and engine
	// confidence from the given file bytes.
	Recognize(ctx context.Context, data []byte, contentType string) ([]verification.Block, error)
	// Name identifies the provider in logs and attempt records.
	Name() string
}

// New creates the configured OCR provider.
func New(cfg *Config, logger *slog.Logger) (Provider, error) {
	switch cfg.Provider {
	case ProviderTesseract:
		return newTesseract(cfg, logger), nil
	case ProviderVision:
		return newVision(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown ocr provider: %s", cfg.Provider)
	}
}
