// Package worker refreshes bike-share station feeds in the background.
package worker

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Job types accepted on the Pub/Sub subscription.
const (
	JobGBFSRefresh = "gbfs_refresh"
	JobHealthCheck = "health_check"
)

// RefreshConfig holds configuration for the GBFS refresh job.
type RefreshConfig struct {
	// Operators to refresh. Empty means every operator the refresher knows.
	Operators []string

	// Concurrency is the number of operators refreshed at once.
	// Default: 2
	Concurrency int

	// Timeout bounds the refresh of one operator.
	// Default: 20 seconds
	Timeout time.Duration

	// Interval is the ticker period used when no Pub/Sub subscription is
	// configured. Default: 60 seconds
	Interval time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Concurrency: 2,
		Timeout:     20 * time.Second,
		Interval:    60 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultRefreshConfig.
func (c RefreshConfig) withDefaults() RefreshConfig {
	def := DefaultRefreshConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	return c
}

// RefreshConfigFromEnv reads WORKER_OPERATORS, WORKER_CONCURRENCY,
// WORKER_TIMEOUT and WORKER_INTERVAL. Unset or invalid values keep the
// defaults.
func RefreshConfigFromEnv() RefreshConfig {
	cfg := DefaultRefreshConfig()

	if v := os.Getenv("WORKER_OPERATORS"); v != "" {
		for _, op := range strings.Split(v, ",") {
			if op = strings.TrimSpace(op); op != "" {
				cfg.Operators = append(cfg.Operators, op)
			}
		}
	}
	if n, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && n > 0 {
		cfg.Concurrency = n
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_INTERVAL")); err == nil && d > 0 {
		cfg.Interval = d
	}
	return cfg
}
