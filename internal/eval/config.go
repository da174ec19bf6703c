// Package eval runs validation over a prompt corpus: it obtains responses
// (live backend or pre-recorded), validates them through the engine and
// policy, scores response quality against a fixed rubric, and aggregates
// pass-rate and latency statistics.
package eval

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config controls an evaluation run. Zero values fall back to defaults;
// LoadConfig overlays a YAML file onto DefaultConfig.
type Config struct {
	BackendURL   string   `yaml:"backend_url"`
	BackendToken string   `yaml:"backend_token"`
	TimeoutSec   int      `yaml:"timeout_sec"`
	Fallback     string   `yaml:"fallback"`
	Parallel     int      `yaml:"parallel"`
	ScoreDefault float64  `yaml:"score_default"`
	StripKeys    []string `yaml:"strip_keys"`
	SchemaDir    string   `yaml:"schema_dir"`
	DBPath       string   `yaml:"db_path"`
	ReviewQueue  string   `yaml:"review_queue"`
	OutputDir    string   `yaml:"output_dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		TimeoutSec:  120,
		Fallback:    "salvage",
		Parallel:    4,
		ReviewQueue: "review_queue.csv",
		OutputDir:   "results",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	return cfg, nil
}

// Timeout returns the per-call timeout.
func (c Config) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}
