// Package api assembles the API module with all domain systems, background
// processing, and route registration.
package api

import (
	"net/http"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/infrastructure"
	"github.com/veridoc/veridoc/pkg/middleware"
	"github.com/veridoc/veridoc/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware,
// and registers the document processor and maintenance scheduler with the
// lifecycle coordinator.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime, cfg)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	if cfg.API.Auth.Enabled {
		m.Use(middleware.Auth(&cfg.API.Auth))
	}
	m.Use(middleware.Logger(runtime.Infrastructure.Logger))

	domain.Processor.Start(infra.Lifecycle)

	sched, err := newScheduler(domain, cfg, runtime.Infrastructure.Logger)
	if err != nil {
		return nil, err
	}
	sched.Start(infra.Lifecycle)

	return m, nil
}
