// Package testsupport provides shared helpers for package tests: temp-backed
// configs, store setup, and canned submissions.
package testsupport

import (
	"path/filepath"
	"testing"

	"herald/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Search.APIKey = "test"
	cfg.Profile.APIKey = "test"
	cfg.LLM.APIKey = "test"
	cfg.Research.APIKey = "test"
	cfg.Workflow.Workers = 2
	cfg.Workflow.RateLimitRPS = 1000
	cfg.Workflow.MaxActiveJobs = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithWorkers overrides the per-stage worker count on the test config.
func WithWorkers(workers int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.Workers = workers
	}
}

// WithMaxActiveJobs overrides the concurrent-job cap on the test config.
func WithMaxActiveJobs(limit int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.MaxActiveJobs = limit
	}
}

// WithStageTimeout overrides the aggregate research/generate stage deadline
// on the test config.
func WithStageTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.StageTimeoutSeconds = seconds
	}
}
