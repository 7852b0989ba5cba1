package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError aggregates all problems found in a config so the operator
// sees every mistake in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid configuration"
	}
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks structural correctness of the configuration. Missing API
// keys are not validation failures here since individual stages report them
// as configuration errors at execution time.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		problems = append(problems, fmt.Sprintf("paths.api_bind %q is not host:port", c.Paths.APIBind))
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level))
	}

	if c.Workflow.Workers > 64 {
		problems = append(problems, "workflow.workers must be at most 64")
	}
	if c.Workflow.MaxActiveJobs > 256 {
		problems = append(problems, "workflow.max_active_jobs must be at most 256")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
