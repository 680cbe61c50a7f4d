package llm

import (
	"fmt"
	"os"
	"strconv"
)

// Supported checker providers.
const (
	ProviderNone      = "none"
	ProviderAnthropic = "anthropic"
)

const defaultModel = "claude-sonnet-4-5-20250929"

// Config holds cross-check provider selection and model settings.
type Config struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	MaxTokens int64  `toml:"max_tokens"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider  string
	Model     string
	APIKey    string
	MaxTokens string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Provider == "" {
		c.Provider = ProviderNone
	}
	if c.Model == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 1024
	}

	if env != nil {
		if env.Provider != "" {
			if v := os.Getenv(env.Provider); v != "" {
				c.Provider = v
			}
		}
		if env.Model != "" {
			if v := os.Getenv(env.Model); v != "" {
				c.Model = v
			}
		}
		if env.APIKey != "" {
			if v := os.Getenv(env.APIKey); v != "" {
				c.APIKey = v
			}
		}
		if env.MaxTokens != "" {
			if v := os.Getenv(env.MaxTokens); v != "" {
				parsed, err := strconv.ParseInt(v, 10, 64)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", env.MaxTokens, err)
				}
				c.MaxTokens = parsed
			}
		}
	}

	switch c.Provider {
	case ProviderNone, ProviderAnthropic:
	default:
		return fmt.Errorf("provider must be %s or %s", ProviderNone, ProviderAnthropic)
	}
	if c.Provider == ProviderAnthropic && c.APIKey == "" {
		return fmt.Errorf("api_key is required when provider is %s", ProviderAnthropic)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.MaxTokens > 0 {
		c.MaxTokens = overlay.MaxTokens
	}
}
