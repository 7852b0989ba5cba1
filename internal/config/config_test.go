package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize default config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected missing config to report exists=false")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("workers = %d, want default 4", cfg.Workflow.Workers)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7733" {
		t.Fatalf("api_bind = %q, want default", cfg.Paths.APIBind)
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
api_bind = "0.0.0.0:9000"

[workflow]
workers = 8
max_active_jobs = 2

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Workflow.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Workflow.Workers)
	}
	if cfg.Workflow.MaxActiveJobs != 2 {
		t.Fatalf("max_active_jobs = %d, want 2", cfg.Workflow.MaxActiveJobs)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("api_bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	// Untouched sections keep defaults.
	if cfg.Search.BaseURL == "" {
		t.Fatal("search base_url default missing")
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data_dir not expanded: %q", cfg.Paths.DataDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	cfg.Paths.APIBind = "not-a-bind"
	cfg.Logging.Format = "yaml"
	cfg.Logging.Level = "loud"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation failure")
	}
	msg := err.Error()
	for _, want := range []string{"api_bind", "logging.format", "logging.level"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation error missing %q: %s", want, msg)
		}
	}
}

func TestNormalizeFillsZeroValues(t *testing.T) {
	cfg := Config{}
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	if cfg.Workflow.RateLimitRPS != 2.0 {
		t.Fatalf("rate_limit_rps = %v", cfg.Workflow.RateLimitRPS)
	}
	if cfg.Workflow.JobDeadlineSeconds != 0 {
		t.Fatalf("job_deadline_seconds = %d, want 0", cfg.Workflow.JobDeadlineSeconds)
	}
	if cfg.JobDeadline() != 0 {
		t.Fatal("zero deadline should disable JobDeadline")
	}
	if cfg.Research.Model == "" {
		t.Fatal("research model default missing")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[workflow]") {
		t.Fatal("sample config missing workflow section")
	}
}
