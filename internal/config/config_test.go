package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/courseware/labgrader/internal/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labgrader.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "results:\n  dir: out\n")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Runtime.Command != "node" {
		t.Errorf("runtime command: got %q, want %q", cfg.Runtime.Command, "node")
	}
	if len(cfg.Runtime.Entries) != 3 || cfg.Runtime.Entries[0] != "app.js" {
		t.Errorf("unexpected default entries: %v", cfg.Runtime.Entries)
	}
	if cfg.Runtime.FallbackEntry != "main.js" {
		t.Errorf("fallback entry: got %q, want %q", cfg.Runtime.FallbackEntry, "main.js")
	}
	if cfg.Discovery.BasePort != 3000 {
		t.Errorf("base port: got %d, want 3000", cfg.Discovery.BasePort)
	}
	if cfg.Discovery.ScanPorts != 10 {
		t.Errorf("scan ports: got %d, want 10", cfg.Discovery.ScanPorts)
	}
	if cfg.Results.Dir != "out" {
		t.Errorf("results dir: got %q, want %q", cfg.Results.Dir, "out")
	}
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
runtime:
  command: bun
  entries: [serve.ts]
  fallback_entry: start.ts
  manager: bun
discovery:
  base_port: 8080
  scan_ports: 5
  startup_budget_s: 12
  poll_interval_ms: 100
fetch:
  timeout_ms: 5000
  probe_timeout_ms: 500
sandbox:
  image: node:20
submission:
  timing_points: 15
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Runtime.Command != "bun" {
		t.Errorf("runtime command: got %q, want %q", cfg.Runtime.Command, "bun")
	}
	if cfg.Discovery.BasePort != 8080 {
		t.Errorf("base port: got %d, want 8080", cfg.Discovery.BasePort)
	}
	if cfg.StartupBudget().Seconds() != 12 {
		t.Errorf("startup budget: got %s, want 12s", cfg.StartupBudget())
	}
	if cfg.FetchTimeout().Milliseconds() != 5000 {
		t.Errorf("fetch timeout: got %s, want 5s", cfg.FetchTimeout())
	}
	if cfg.Sandbox.Image != "node:20" {
		t.Errorf("sandbox image: got %q, want %q", cfg.Sandbox.Image, "node:20")
	}
	if cfg.Submission.TimingPoints != 15 {
		t.Errorf("timing points: got %d, want 15", cfg.Submission.TimingPoints)
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "runtime: [not: a: mapping\n")
	_, err := config.Load(path)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"port out of range", "discovery:\n  base_port: 70000\n"},
		{"scan range overflow", "discovery:\n  base_port: 65530\n  scan_ports: 10\n"},
		{"negative timing points", "submission:\n  timing_points: -5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			if _, err := config.Load(path); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Runtime.Command != "node" {
		t.Errorf("runtime command: got %q, want %q", cfg.Runtime.Command, "node")
	}
	if cfg.PollInterval().Milliseconds() != 200 {
		t.Errorf("poll interval: got %s, want 200ms", cfg.PollInterval())
	}
	if cfg.ProbeTimeout().Milliseconds() != 1000 {
		t.Errorf("probe timeout: got %s, want 1s", cfg.ProbeTimeout())
	}
}
