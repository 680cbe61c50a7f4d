// Package infrastructure provides core service initialization for application
// startup. It assembles the shared dependencies (logging, database, storage,
// OCR, verification) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/veridoc/veridoc/internal/config"
	"github.com/veridoc/veridoc/internal/llm"
	"github.com/veridoc/veridoc/internal/ocr"
	"github.com/veridoc/veridoc/internal/verification"
	"github.com/veridoc/veridoc/pkg/database"
	"github.com/veridoc/veridoc/pkg/lifecycle"
	"github.com/veridoc/veridoc/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// It provides a single point of initialization for lifecycle coordination,
// logging, database access, file storage, OCR, and the verification engine.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	OCR       ocr.Provider
	Engine    *verification.Engine
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	provider, err := ocr.New(&cfg.OCR, logger)
	if err != nil {
		return nil, fmt.Errorf("ocr init failed: %w", err)
	}

	checker, err := llm.New(&cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("llm init failed: %w", err)
	}

	var crossChecker verification.CrossChecker
	if checker != nil {
		crossChecker = checker
	}
	engine := verification.NewEngine(cfg.Engine.Options(), crossChecker, logger)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		OCR:       provider,
		Engine:    engine,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// Database and storage hooks are registered for startup and shutdown coordination.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	return nil
}
