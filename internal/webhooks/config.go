package webhooks

import (
	"fmt"
	"os"
	"time"
)

// Config controls the delivery retry schedule and HTTP behavior.
type Config struct {
	BackoffBase   string `toml:"backoff_base"`
	BackoffFactor int    `toml:"backoff_factor"`
	BackoffCap    string `toml:"backoff_cap"`
	MaxAttempts   int    `toml:"max_attempts"`
	Timeout       string `toml:"timeout"`
	SweepSchedule string `toml:"sweep_schedule"`

	backoffBase time.Duration
	backoffCap  time.Duration
	timeout     time.Duration
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	MaxAttempts   string
	SweepSchedule string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.BackoffBase == "" {
		c.BackoffBase = "30s"
	}
	if c.BackoffFactor == 0 {
		c.BackoffFactor = 2
	}
	if c.BackoffCap == "" {
		c.BackoffCap = "1h"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.Timeout == "" {
		c.Timeout = "10s"
	}
	if c.SweepSchedule == "" {
		c.SweepSchedule = "* * * * *"
	}

	if env != nil {
		if env.MaxAttempts != "" {
			if v := os.Getenv(env.MaxAttempts); v != "" {
				if _, err := fmt.Sscanf(v, "%d", &c.MaxAttempts); err != nil {
					return fmt.Errorf("parsing %s: %w", env.MaxAttempts, err)
				}
			}
		}
		if env.SweepSchedule != "" {
			if v := os.Getenv(env.SweepSchedule); v != "" {
				c.SweepSchedule = v
			}
		}
	}

	var err error
	if c.backoffBase, err = time.ParseDuration(c.BackoffBase); err != nil {
		return fmt.Errorf("parsing backoff_base: %w", err)
	}
	if c.backoffCap, err = time.ParseDuration(c.BackoffCap); err != nil {
		return fmt.Errorf("parsing backoff_cap: %w", err)
	}
	if c.timeout, err = time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("parsing timeout: %w", err)
	}

	if c.backoffBase <= 0 || c.backoffCap < c.backoffBase {
		return fmt.Errorf("backoff_cap must be at least backoff_base")
	}
	if c.BackoffFactor < 2 {
		return fmt.Errorf("backoff_factor must be at least 2")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}

	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.BackoffBase != "" {
		c.BackoffBase = overlay.BackoffBase
	}
	if overlay.BackoffFactor > 0 {
		c.BackoffFactor = overlay.BackoffFactor
	}
	if overlay.BackoffCap != "" {
		c.BackoffCap = overlay.BackoffCap
	}
	if overlay.MaxAttempts > 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.SweepSchedule != "" {
		c.SweepSchedule = overlay.SweepSchedule
	}
}

// Backoff returns the delay before the given retry, capped. The first
// retry (attempt 1) waits the base delay.
func (c *Config) Backoff(attempt int) time.Duration {
	delay := c.backoffBase
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(c.BackoffFactor)
		if delay >= c.backoffCap {
			return c.backoffCap
		}
	}
	if delay > c.backoffCap {
		return c.backoffCap
	}
	return delay
}

// RequestTimeout returns the per-delivery HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return c.timeout
}
