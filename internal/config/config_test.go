package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/directory-crawler/internal/catalog"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Search.Areas) != 12 || cfg.Search.Areas[0] != (catalog.Area{Name: "Madrid", Postal: "28001"}) {
		t.Fatalf("unexpected default areas: %+v", cfg.Search.Areas)
	}
	if len(cfg.Search.Categories) != len(catalog.DefaultCategories) {
		t.Fatalf("expected %d categories, got %d", len(catalog.DefaultCategories), len(cfg.Search.Categories))
	}
	if cfg.Search.MaxWait != 45*time.Second || cfg.Search.MaxExecutionTime != 300*time.Second {
		t.Fatalf("unexpected search waits: %+v", cfg.Search)
	}
	if cfg.Search.MaxListings != 5 || cfg.Search.ScrollPasses != 3 {
		t.Fatalf("unexpected search limits: %+v", cfg.Search)
	}
	if cfg.Fetch.GateCapacity != 50 || cfg.Fetch.MaxRetries != 3 || cfg.Fetch.RetryDelay != 500*time.Millisecond {
		t.Fatalf("unexpected fetch defaults: %+v", cfg.Fetch)
	}
	if cfg.Checkpoint.Interval != 10 || cfg.Checkpoint.Duration != 30*time.Minute || cfg.Checkpoint.Format != FormatXLSX {
		t.Fatalf("unexpected checkpoint defaults: %+v", cfg.Checkpoint)
	}
	if cfg.Browser.StartPort != 9515 || cfg.Browser.PortSpan != 100 || !cfg.Browser.Headless {
		t.Fatalf("unexpected browser defaults: %+v", cfg.Browser)
	}
	if cfg.Server.Port != 0 {
		t.Fatalf("ops server should be disabled by default, got port %d", cfg.Server.Port)
	}
	if cfg.Redis.TTL != 72*time.Hour {
		t.Fatalf("unexpected redis ttl: %s", cfg.Redis.TTL)
	}
	if cfg.GCS.Bucket != "" || cfg.GCS.Prefix != "snapshots" || cfg.GCS.CacheControl != "no-cache" {
		t.Fatalf("unexpected gcs defaults: %+v", cfg.GCS)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
logging:
  development: false
search:
  areas:
    - name: Bilbao
      postal: "48001"
    - name: Segovia
      postal: "40001"
  categories: ["Bakery", "Florist"]
  max_listings: 8
  max_wait: 20s
browser:
  headless: false
  exec_path: /usr/bin/chromium
fetch:
  gate_capacity: 10
  per_host_rps: 2.5
checkpoint:
  format: csv
  interval: 5
  duration: 10m
postgres:
  dsn: postgres://localhost/listings
  table: spain_listings
server:
  port: 9090
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []catalog.Area{{Name: "Bilbao", Postal: "48001"}, {Name: "Segovia", Postal: "40001"}}
	if len(cfg.Search.Areas) != 2 || cfg.Search.Areas[0] != want[0] || cfg.Search.Areas[1] != want[1] {
		t.Fatalf("areas = %+v, want %+v", cfg.Search.Areas, want)
	}
	if strings.Join(cfg.Search.Categories, ",") != "Bakery,Florist" {
		t.Fatalf("categories = %v", cfg.Search.Categories)
	}
	if cfg.Search.MaxListings != 8 || cfg.Search.MaxWait != 20*time.Second {
		t.Fatalf("search overrides not applied: %+v", cfg.Search)
	}
	if cfg.Browser.Headless || cfg.Browser.ExecPath != "/usr/bin/chromium" {
		t.Fatalf("browser overrides not applied: %+v", cfg.Browser)
	}
	if cfg.Fetch.GateCapacity != 10 || cfg.Fetch.PerHostRPS != 2.5 {
		t.Fatalf("fetch overrides not applied: %+v", cfg.Fetch)
	}
	if cfg.Checkpoint.Format != FormatCSV || cfg.Checkpoint.Interval != 5 || cfg.Checkpoint.Duration != 10*time.Minute {
		t.Fatalf("checkpoint overrides not applied: %+v", cfg.Checkpoint)
	}
	if cfg.Postgres.Table != "spain_listings" || cfg.Server.Port != 9090 || cfg.Logging.Development {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DIRCRAWLER_FETCH_MAX_RETRIES", "5")
	t.Setenv("DIRCRAWLER_SEARCH_COUNTRY", "Portugal")
	t.Setenv("DIRCRAWLER_CHECKPOINT_DURATION", "45m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Fetch.MaxRetries != 5 {
		t.Fatalf("max retries = %d, want 5", cfg.Fetch.MaxRetries)
	}
	if cfg.Search.Country != "Portugal" {
		t.Fatalf("country = %q", cfg.Search.Country)
	}
	if cfg.Checkpoint.Duration != 45*time.Minute {
		t.Fatalf("duration = %s", cfg.Checkpoint.Duration)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func validConfig(t *testing.T) Config {
	t.Helper()
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return cfg
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no areas", func(c *Config) { c.Search.Areas = nil }, "search areas"},
		{"no categories", func(c *Config) { c.Search.Categories = nil }, "search categories"},
		{"zero attempts", func(c *Config) { c.Search.MaxAttempts = 0 }, "search.max_attempts"},
		{"zero wait", func(c *Config) { c.Search.MaxWait = 0 }, "search.max_wait"},
		{"zero gate", func(c *Config) { c.Fetch.GateCapacity = 0 }, "fetch.gate_capacity"},
		{"zero retries", func(c *Config) { c.Fetch.MaxRetries = 0 }, "fetch.max_retries"},
		{"zero interval", func(c *Config) { c.Checkpoint.Interval = 0 }, "checkpoint.interval"},
		{"zero duration", func(c *Config) { c.Checkpoint.Duration = 0 }, "checkpoint.duration"},
		{"bad format", func(c *Config) { c.Checkpoint.Format = "ods" }, "checkpoint.format"},
		{"bad table", func(c *Config) { c.Postgres.DSN = "postgres://x"; c.Postgres.Table = "drop table;" }, "postgres.table"},
		{"topic without project", func(c *Config) { c.PubSub.Topic = "snapshots" }, "pubsub.project_id"},
		{"port range", func(c *Config) { c.Browser.StartPort = 65500 }, "browser.start_port"},
		{"zero start attempts", func(c *Config) { c.Browser.StartAttempts = 0 }, "browser.start_attempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
