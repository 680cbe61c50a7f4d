package ocr

import (
	"fmt"
	"os"
	"strings"
)

// Supported provider identifiers.
const (
	ProviderTesseract = "tesseract"
	ProviderVision    = "vision"
)

// Config holds OCR provider selection and provider-specific settings.
type Config struct {
	Provider        string   `toml:"provider"`
	Languages       []string `toml:"languages"`
	CredentialsFile string   `toml:"credentials_file"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider        string
	Languages       string
	CredentialsFile string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Provider == "" {
		c.Provider = ProviderTesseract
	}
	if len(c.Languages) == 0 {
		c.Languages = []string{"eng"}
	}

	if env != nil {
		if env.Provider != "" {
			if v := os.Getenv(env.Provider); v != "" {
				c.Provider = v
			}
		}
		if env.Languages != "" {
			if v := os.Getenv(env.Languages); v != "" {
				langs := strings.Split(v, ",")
				c.Languages = c.Languages[:0]
				for _, lang := range langs {
					if trimmed := strings.TrimSpace(lang); trimmed != "" {
						c.Languages = append(c.Languages, trimmed)
					}
				}
			}
		}
		if env.CredentialsFile != "" {
			if v := os.Getenv(env.CredentialsFile); v != "" {
				c.CredentialsFile = v
			}
		}
	}

	if c.Provider != ProviderTesseract && c.Provider != ProviderVision {
		return fmt.Errorf("provider must be %s or %s", ProviderTesseract, ProviderVision)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Languages != nil {
		c.Languages = overlay.Languages
	}
	if overlay.CredentialsFile != "" {
		c.CredentialsFile = overlay.CredentialsFile
	}
}
