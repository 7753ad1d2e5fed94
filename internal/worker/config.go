package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the janitor.
type Config struct {
	// Interval is how often every registered job runs.
	// Default: 5 minutes
	Interval time.Duration

	// JobTimeout is the maximum time a single job is allowed to run.
	// If a job exceeds this timeout, its context is canceled and it's counted as failed.
	// Default: 1 minute
	JobTimeout time.Duration

	// ShutdownTimeout is how long Stop waits for a running sweep to finish.
	// Default: 30 seconds
	ShutdownTimeout time.Duration

	// Retention is how long in-memory form state (preview URLs, open
	// dialogs, address resolvers) may sit unused before it is dropped.
	// It should match the draft lifetime.
	// Default: 24 hours
	Retention time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Minute,
		JobTimeout:      time.Minute,
		ShutdownTimeout: 30 * time.Second,
		Retention:       24 * time.Hour,
	}
}

// Validate checks if the configuration is valid.
func (c Config) Validate() error {
	if c.Interval < 1*time.Second {
		return fmt.Errorf("interval must be at least 1 second, got %v", c.Interval)
	}
	if c.JobTimeout < 1*time.Second {
		return fmt.Errorf("job timeout must be at least 1 second, got %v", c.JobTimeout)
	}
	if c.ShutdownTimeout < 1*time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	if c.Retention < 1*time.Minute {
		return fmt.Errorf("retention must be at least 1 minute, got %v", c.Retention)
	}
	return nil
}
