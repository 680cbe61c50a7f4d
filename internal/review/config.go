package review

import (
	"fmt"
	"os"
	"time"
)

// Config controls priority derivation and the SLA escalation window.
// Items whose confidence falls below HighBelow get priority 3, below
// MediumBelow priority 2, otherwise 1; each missing required field adds
// one priority point.
type Config struct {
	HighBelow   float64 `toml:"high_below"`
	MediumBelow float64 `toml:"medium_below"`
	SLA         string  `toml:"sla"`

	sla time.Duration
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	SLA string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.HighBelow == 0 {
		c.HighBelow = 0.6
	}
	if c.MediumBelow == 0 {
		c.MediumBelow = 0.75
	}
	if c.SLA == "" {
		c.SLA = "24h"
	}

	if env != nil && env.SLA != "" {
		if v := os.Getenv(env.SLA); v != "" {
			c.SLA = v
		}
	}

	if c.HighBelow > c.MediumBelow {
		return fmt.Errorf("high_below must not exceed medium_below")
	}

	sla, err := time.ParseDuration(c.SLA)
	if err != nil {
		return fmt.Errorf("parsing sla: %w", err)
	}
	if sla <= 0 {
		return fmt.Errorf("sla must be positive")
	}
	c.sla = sla

	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.HighBelow > 0 {
		c.HighBelow = overlay.HighBelow
	}
	if overlay.MediumBelow > 0 {
		c.MediumBelow = overlay.MediumBelow
	}
	if overlay.SLA != "" {
		c.SLA = overlay.SLA
	}
}

// SLAWindow returns the parsed escalation window.
func (c *Config) SLAWindow() time.Duration {
	return c.sla
}

// DerivePriority computes queue priority from the verification confidence
// and the number of missing required fields.
func (c *Config) DerivePriority(confidence float64, missingRequired int) int {
	priority := 1
	if confidence < c.MediumBelow {
		priority = 2
	}
	if confidence < c.HighBelow {
		priority = 3
	}
	return priority + missingRequired
}
