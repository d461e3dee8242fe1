package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no --config flag is given. Unlike an
// explicit path, a missing default file is not an error: grading a lab
// should work out of the box with no config at all.
const DefaultPath = "labgrader.yaml"

type Config struct {
	Runtime    Runtime    `yaml:"runtime"`
	Discovery  Discovery  `yaml:"discovery"`
	Fetch      Fetch      `yaml:"fetch"`
	Sandbox    Sandbox    `yaml:"sandbox"`
	Results    Results    `yaml:"results"`
	Submission Submission `yaml:"submission"`
}

type Runtime struct {
	Command       string   `yaml:"command"`
	Entries       []string `yaml:"entries"`
	FallbackEntry string   `yaml:"fallback_entry"`
	Manager       string   `yaml:"manager"`
}

type Discovery struct {
	BasePort       int `yaml:"base_port"`
	ScanPorts      int `yaml:"scan_ports"`
	StartupBudgetS int `yaml:"startup_budget_s"`
	PollIntervalMS int `yaml:"poll_interval_ms"`
}

type Fetch struct {
	TimeoutMS      int `yaml:"timeout_ms"`
	ProbeTimeoutMS int `yaml:"probe_timeout_ms"`
}

type Sandbox struct {
	Image string `yaml:"image"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

type Submission struct {
	TimingPoints int `yaml:"timing_points"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Runtime.Command == "" {
		cfg.Runtime.Command = "node"
	}
	if len(cfg.Runtime.Entries) == 0 {
		cfg.Runtime.Entries = []string{"app.js", "server.js", "index.js"}
	}
	if cfg.Runtime.FallbackEntry == "" {
		cfg.Runtime.FallbackEntry = "main.js"
	}
	if cfg.Runtime.Manager == "" {
		cfg.Runtime.Manager = "npm"
	}
	if cfg.Discovery.BasePort == 0 {
		cfg.Discovery.BasePort = 3000
	}
	if cfg.Discovery.ScanPorts == 0 {
		cfg.Discovery.ScanPorts = 10
	}
	if cfg.Discovery.StartupBudgetS == 0 {
		cfg.Discovery.StartupBudgetS = 8
	}
	if cfg.Discovery.PollIntervalMS == 0 {
		cfg.Discovery.PollIntervalMS = 200
	}
	if cfg.Fetch.TimeoutMS == 0 {
		cfg.Fetch.TimeoutMS = 3000
	}
	if cfg.Fetch.ProbeTimeoutMS == 0 {
		cfg.Fetch.ProbeTimeoutMS = 1000
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}
}

func validate(cfg *Config) error {
	if cfg.Discovery.BasePort < 1 || cfg.Discovery.BasePort > 65535 {
		return fmt.Errorf("discovery: base_port %d out of range", cfg.Discovery.BasePort)
	}
	if cfg.Discovery.ScanPorts < 1 {
		return fmt.Errorf("discovery: scan_ports must be at least 1")
	}
	if cfg.Discovery.BasePort+cfg.Discovery.ScanPorts-1 > 65535 {
		return fmt.Errorf("discovery: scan range ends past port 65535")
	}
	if cfg.Discovery.StartupBudgetS < 1 {
		return fmt.Errorf("discovery: startup_budget_s must be at least 1")
	}
	if cfg.Fetch.TimeoutMS < 1 {
		return fmt.Errorf("fetch: timeout_ms must be at least 1")
	}
	if cfg.Fetch.ProbeTimeoutMS < 1 {
		return fmt.Errorf("fetch: probe_timeout_ms must be at least 1")
	}
	for i, e := range cfg.Runtime.Entries {
		if e == "" {
			return fmt.Errorf("runtime: entry %d is empty", i)
		}
	}
	if cfg.Submission.TimingPoints < 0 {
		return fmt.Errorf("submission: timing_points must not be negative")
	}
	return nil
}

// StartupBudget returns the discovery budget as a duration.
func (c *Config) StartupBudget() time.Duration {
	return time.Duration(c.Discovery.StartupBudgetS) * time.Second
}

// PollInterval returns the discovery poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Discovery.PollIntervalMS) * time.Millisecond
}

// FetchTimeout returns the default fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutMS) * time.Millisecond
}

// ProbeTimeout returns the short timeout used for discovery probes.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.Fetch.ProbeTimeoutMS) * time.Millisecond
}
