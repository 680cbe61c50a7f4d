package processing

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config controls the worker pool and retry schedule.
type Config struct {
	Workers      int    `toml:"workers"`
	PollInterval string `toml:"poll_interval"`
	RetryBudget  int    `toml:"retry_budget"`
	RetryBase    string `toml:"retry_base"`
	RetryFactor  int    `toml:"retry_factor"`
	StaleAfter   string `toml:"stale_after"`

	pollInterval time.Duration
	retryBase    time.Duration
	staleAfter   time.Duration
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers     string
	RetryBudget string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.PollInterval == "" {
		c.PollInterval = "2s"
	}
	if c.RetryBudget == 0 {
		c.RetryBudget = 3
	}
	if c.RetryBase == "" {
		c.RetryBase = "5s"
	}
	if c.RetryFactor == 0 {
		c.RetryFactor = 2
	}
	if c.StaleAfter == "" {
		c.StaleAfter = "5m"
	}

	if env != nil {
		if env.Workers != "" {
			if v := os.Getenv(env.Workers); v != "" {
				parsed, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", env.Workers, err)
				}
				c.Workers = parsed
			}
		}
		if env.RetryBudget != "" {
			if v := os.Getenv(env.RetryBudget); v != "" {
				parsed, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", env.RetryBudget, err)
				}
				c.RetryBudget = parsed
			}
		}
	}

	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1")
	}
	if c.RetryBudget < 0 {
		return fmt.Errorf("retry_budget must not be negative")
	}
	if c.RetryFactor < 2 {
		return fmt.Errorf("retry_factor must be at least 2")
	}

	var err error
	if c.pollInterval, err = time.ParseDuration(c.PollInterval); err != nil {
		return fmt.Errorf("parsing poll_interval: %w", err)
	}
	if c.retryBase, err = time.ParseDuration(c.RetryBase); err != nil {
		return fmt.Errorf("parsing retry_base: %w", err)
	}
	if c.staleAfter, err = time.ParseDuration(c.StaleAfter); err != nil {
		return fmt.Errorf("parsing stale_after: %w", err)
	}
	if c.pollInterval <= 0 || c.retryBase <= 0 || c.staleAfter <= 0 {
		return fmt.Errorf("poll_interval, retry_base, and stale_after must be positive")
	}

	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Workers > 0 {
		c.Workers = overlay.Workers
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.RetryBudget > 0 {
		c.RetryBudget = overlay.RetryBudget
	}
	if overlay.RetryBase != "" {
		c.RetryBase = overlay.RetryBase
	}
	if overlay.RetryFactor > 0 {
		c.RetryFactor = overlay.RetryFactor
	}
	if overlay.StaleAfter != "" {
		c.StaleAfter = overlay.StaleAfter
	}
}

// Poll returns the parsed queue poll interval.
func (c *Config) Poll() time.Duration {
	return c.pollInterval
}

// StaleWindow returns how long a document may sit in processing before
// the sweep treats its worker as dead.
func (c *Config) StaleWindow() time.Duration {
	return c.staleAfter
}

// RetryDelay returns the backoff before the given retry. The first retry
// waits the base delay.
func (c *Config) RetryDelay(retry int) time.Duration {
	delay := c.retryBase
	for i := 1; i < retry; i++ {
		delay *= time.Duration(c.RetryFactor)
	}
	return delay
}
