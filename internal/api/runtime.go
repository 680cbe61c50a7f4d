package api

import (
	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/infrastructure"
	"github.com/veridoc/veridoc/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Database:  infra.Database,
			Storage:   infra.Storage,
			OCR:       infra.OCR,
			Engine:    infra.Engine,
		},
		Pagination: cfg.API.Pagination,
	}
}
