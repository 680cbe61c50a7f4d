package api

import (
	"net/http"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
) {
	routes.Register(
		mux,
		domain.Templates.Handler().Routes(),
		domain.Documents.Handler(
			cfg.API.MaxUploadSizeBytes(),
			cfg.API.AllowedTypes,
			domain.Processor.Leases(),
		).Routes(),
		domain.Review.Handler().Routes(),
		domain.Webhooks.Handler().Routes(),
	)
}
