package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/veridoc/veridoc/internal/verification"
)

const (
	EnvEngineMinOverlap    = "VERIDOC_ENGINE_MIN_OVERLAP"
	EnvEngineFailThreshold = "VERIDOC_ENGINE_FAIL_THRESHOLD"
	EnvEnginePassThreshold = "VERIDOC_ENGINE_PASS_THRESHOLD"
)

// EngineConfig holds the tunable constants of the verification core.
type EngineConfig struct {
	MinOverlap    float64 `toml:"min_overlap"`
	FailThreshold float64 `toml:"fail_threshold"`
	PassThreshold float64 `toml:"pass_threshold"`
	CheckPenalty  float64 `toml:"check_penalty"`
	CheckWeight   float64 `toml:"check_weight"`
}

// Options builds the verification engine options from the configured values.
func (c *EngineConfig) Options() verification.Options {
	return verification.Options{
		Match: verification.MatchOptions{MinOverlap: c.MinOverlap},
		Score: verification.ScoreOptions{
			CheckPenalty: c.CheckPenalty,
			CheckWeight:  c.CheckWeight,
		},
		Thresholds: verification.Thresholds{
			Fail: c.FailThreshold,
			Pass: c.PassThreshold,
		},
	}
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *EngineConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *EngineConfig) Merge(overlay *EngineConfig) {
	if overlay.MinOverlap != 0 {
		c.MinOverlap = overlay.MinOverlap
	}
	if overlay.FailThreshold != 0 {
		c.FailThreshold = overlay.FailThreshold
	}
	if overlay.PassThreshold != 0 {
		c.PassThreshold = overlay.PassThreshold
	}
	if overlay.CheckPenalty != 0 {
		c.CheckPenalty = overlay.CheckPenalty
	}
	if overlay.CheckWeight != 0 {
		c.CheckWeight = overlay.CheckWeight
	}
}

func (c *EngineConfig) loadDefaults() {
	if c.MinOverlap == 0 {
		c.MinOverlap = 0.10
	}
	if c.FailThreshold == 0 {
		c.FailThreshold = 0.50
	}
	if c.PassThreshold == 0 {
		c.PassThreshold = 0.85
	}
	if c.CheckPenalty == 0 {
		c.CheckPenalty = 0.5
	}
	if c.CheckWeight == 0 {
		c.CheckWeight = 0.3
	}
}

func (c *EngineConfig) loadEnv() error {
	for _, override := range []struct {
		name  string
		field *float64
	}{
		{EnvEngineMinOverlap, &c.MinOverlap},
		{EnvEngineFailThreshold, &c.FailThreshold},
		{EnvEnginePassThreshold, &c.PassThreshold},
	} {
		v := os.Getenv(override.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", override.name, err)
		}
		*override.field = parsed
	}
	return nil
}

func (c *EngineConfig) validate() error {
	if c.MinOverlap <= 0 || c.MinOverlap >= 1 {
		return fmt.Errorf("min_overlap must be in (0, 1)")
	}
	if c.FailThreshold <= 0 || c.FailThreshold >= c.PassThreshold {
		return fmt.Errorf("fail_threshold must be in (0, pass_threshold)")
	}
	if c.PassThreshold > 1 {
		return fmt.Errorf("pass_threshold must not exceed 1")
	}
	if c.CheckPenalty < 0 || c.CheckPenalty > 1 {
		return fmt.Errorf("check_penalty must be in [0, 1]")
	}
	if c.CheckWeight < 0 || c.CheckWeight > 1 {
		return fmt.Errorf("check_weight must be in [0, 1]")
	}
	return nil
}
