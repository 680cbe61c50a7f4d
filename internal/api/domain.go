package api

import (
	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/documents"
	"github.com/veridoc/veridoc/internal/processing"
	"github.com/veridoc/veridoc/internal/review"
	"github.com/veridoc/veridoc/internal/templates"
	"github.com/veridoc/veridoc/internal/webhooks"
)

// Domain holds all domain systems that comprise the API, plus the
// background processor that drives documents through verification.
type Domain struct {
	Templates templates.System
	Documents documents.System
	Review    review.System
	Webhooks  webhooks.System
	Processor *processing.Processor
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime, cfg *config.Config) *Domain {
	db := runtime.Database.Connection()

	templatesSystem := templates.New(
		db,
		runtime.Logger,
		runtime.Pagination,
	)

	documentsSystem := documents.New(
		db,
		runtime.Storage,
		runtime.Logger,
		runtime.Pagination,
	)

	webhooksSystem := webhooks.New(
		db,
		cfg.Webhooks,
		runtime.Logger,
		runtime.Pagination,
	)

	reviewSystem := review.New(
		db,
		cfg.Review,
		webhooksSystem,
		runtime.Logger,
		runtime.Pagination,
	)

	processor := processing.New(
		documentsSystem,
		templatesSystem,
		runtime.OCR,
		runtime.Engine,
		reviewSystem,
		webhooksSystem,
		cfg.Processing,
		runtime.Logger,
	)

	return &Domain{
		Templates: templatesSystem,
		Documents: documentsSystem,
		Review:    reviewSystem,
		Webhooks:  webhooksSystem,
		Processor: processor,
	}
}
