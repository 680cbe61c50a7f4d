// Package llm provides the optional model-backed cross-checker used to
// enrich field confidence. A nil checker disables enrichment; provider
// failures never fail a verification attempt.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/veridoc/veridoc/internal/verification"
)

const checkSystemPrompt = `You validate a single value extracted from a scanned document field.
Judge whether the extracted text is a plausible value for the named field.
Respond with JSON only (no markdown):
{"agrees": true, "suggested_value": ""}
Set agrees to false and fill suggested_value with your best correction when the text looks wrong for the field.`

type checkResponse struct {
	Agrees         bool   `json:"agrees"`
	SuggestedValue string `json:"suggested_value"`
}

// Checker cross-checks extracted field values against an Anthropic model.
type Checker struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// New creates the configured cross-checker. A nil Checker is returned
// when the provider is "none"; callers pass it through untyped.
func New(cfg *Config, logger *slog.Logger) (*Checker, error) {
	switch cfg.Provider {
	case ProviderNone:
		return nil, nil
	case ProviderAnthropic:
		return &Checker{
			client:    anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
			model:     cfg.Model,
			maxTokens: cfg.MaxTokens,
			logger:    logger.With("system", "llm", "model", cfg.Model),
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

// CrossCheck implements verification.CrossChecker.
func (c *Checker) CrossCheck(ctx context.Context, fieldName, extracted string) (verification.CheckVerdict, error) {
	prompt := fmt.Sprintf("Field: %s\nExtracted text: %s", fieldName, extracted)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: checkSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return verification.CheckVerdict{}, fmt.Errorf("anthropic request: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return verification.CheckVerdict{}, fmt.Errorf("no text content in response")
	}

	parsed, err := parseVerdict(text)
	if err != nil {
		return verification.CheckVerdict{}, err
	}

	c.logger.Debug("cross-check complete",
		"field", fieldName,
		"agrees", parsed.Agrees,
		"tokens_in", message.Usage.InputTokens,
		"tokens_out", message.Usage.OutputTokens,
	)
	return verification.CheckVerdict{
		Agrees:    parsed.Agrees,
		Suggested: strings.TrimSpace(parsed.SuggestedValue),
	}, nil
}

func parseVerdict(text string) (checkResponse, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed checkResponse
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return checkResponse{}, fmt.Errorf("parsing verdict: %w", err)
	}
	return parsed, nil
}
