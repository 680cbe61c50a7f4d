// Package config loads and finalizes the root service configuration from
// TOML files and environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/veridoc/veridoc/internal/llm"
	"github.com/veridoc/veridoc/internal/ocr"
	"github.com/veridoc/veridoc/internal/processing"
	"github.com/veridoc/veridoc/internal/review"
	"github.com/veridoc/veridoc/internal/webhooks"
	"github.com/veridoc/veridoc/pkg/database"
	"github.com/veridoc/veridoc/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvVeridocEnv             = "VERIDOC_ENV"
	EnvVeridocShutdownTimeout = "VERIDOC_SHUTDOWN_TIMEOUT"
	EnvVeridocVersion         = "VERIDOC_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "VERIDOC_DB_HOST",
	Port:            "VERIDOC_DB_PORT",
	Name:            "VERIDOC_DB_NAME",
	User:            "VERIDOC_DB_USER",
	Password:        "VERIDOC_DB_PASSWORD",
	SSLMode:         "VERIDOC_DB_SSL_MODE",
	MaxOpenConns:    "VERIDOC_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "VERIDOC_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "VERIDOC_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "VERIDOC_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "VERIDOC_STORAGE_CONTAINER_NAME",
	ConnectionString: "VERIDOC_STORAGE_CONNECTION_STRING",
}

var ocrEnv = &ocr.Env{
	Provider:        "VERIDOC_OCR_PROVIDER",
	Languages:       "VERIDOC_OCR_LANGUAGES",
	CredentialsFile: "VERIDOC_OCR_CREDENTIALS_FILE",
}

var llmEnv = &llm.Env{
	Provider:  "VERIDOC_LLM_PROVIDER",
	Model:     "VERIDOC_LLM_MODEL",
	APIKey:    "VERIDOC_LLM_API_KEY",
	MaxTokens: "VERIDOC_LLM_MAX_TOKENS",
}

var processingEnv = &processing.Env{
	Workers:     "VERIDOC_PROCESSING_WORKERS",
	RetryBudget: "VERIDOC_PROCESSING_RETRY_BUDGET",
}

var reviewEnv = &review.Env{
	SLA: "VERIDOC_REVIEW_SLA",
}

var webhooksEnv = &webhooks.Env{
	MaxAttempts:   "VERIDOC_WEBHOOKS_MAX_ATTEMPTS",
	SweepSchedule: "VERIDOC_WEBHOOKS_SWEEP_SCHEDULE",
}

// Config is the root configuration for the Veridoc service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	API             APIConfig         `toml:"api"`
	Engine          EngineConfig      `toml:"engine"`
	OCR             ocr.Config        `toml:"ocr"`
	LLM             llm.Config        `toml:"llm"`
	Processing      processing.Config `toml:"processing"`
	Review          review.Config     `toml:"review"`
	Webhooks        webhooks.Config   `toml:"webhooks"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env returns the VERIDOC_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvVeridocEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Engine.Merge(&overlay.Engine)
	c.OCR.Merge(&overlay.OCR)
	c.LLM.Merge(&overlay.LLM)
	c.Processing.Merge(&overlay.Processing)
	c.Review.Merge(&overlay.Review)
	c.Webhooks.Merge(&overlay.Webhooks)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Engine.Finalize(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := c.OCR.Finalize(ocrEnv); err != nil {
		return fmt.Errorf("ocr: %w", err)
	}
	if err := c.LLM.Finalize(llmEnv); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if err := c.Processing.Finalize(processingEnv); err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	if err := c.Review.Finalize(reviewEnv); err != nil {
		return fmt.Errorf("review: %w", err)
	}
	if err := c.Webhooks.Finalize(webhooksEnv); err != nil {
		return fmt.Errorf("webhooks: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvVeridocShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvVeridocVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvVeridocEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
