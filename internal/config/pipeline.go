package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/spachava753/mixwatch/internal/models"
)

const (
	defaultConcurrency    = 1
	defaultPollIntervalMs = 100
	defaultLogLevel       = "info"
)

// DefaultPipelineConfig returns a PipelineConfig with default values.
func DefaultPipelineConfig() models.PipelineConfig {
	return models.PipelineConfig{
		LogLevel:    defaultLogLevel,
		Concurrency: defaultConcurrency,
		Watch: models.WatchConfig{
			PollIntervalMs: defaultPollIntervalMs,
		},
	}
}

// LoadPipelineConfig loads and parses a pipeline file. Files ending in .toml
// are decoded as TOML, everything else as YAML.
func LoadPipelineConfig(path string) (models.PipelineConfig, error) {
	cfg := DefaultPipelineConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading pipeline config: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parsing pipeline config: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing pipeline config: %w", err)
		}
	}

	applyDefaults(&cfg)

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks the task list for structural problems.
func Validate(cfg models.PipelineConfig) error {
	if len(cfg.Tasks) == 0 {
		return fmt.Errorf("pipeline defines no tasks")
	}

	seen := make(map[string]bool, len(cfg.Tasks))
	for i, t := range cfg.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task[%d]: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("task[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = true

		switch t.Type {
		case models.TaskTypeCopy, models.TaskTypeConcat:
		default:
			return fmt.Errorf("task %q: unsupported type %q", t.Name, t.Type)
		}

		if len(t.Sources) == 0 {
			return fmt.Errorf("task %q: at least one source is required", t.Name)
		}
		if t.Output == "" {
			return fmt.Errorf("task %q: output is required", t.Name)
		}

		// Copy places every source directly in the output directory.
		if t.Type == models.TaskTypeCopy {
			bases := make(map[string]string, len(t.Sources))
			for _, src := range t.Sources {
				base := filepath.Base(src)
				if prev, ok := bases[base]; ok {
					return fmt.Errorf("task %q: sources %q and %q both copy to %q", t.Name, prev, src, base)
				}
				bases[base] = src
			}
		}
	}

	return nil
}

func applyDefaults(cfg *models.PipelineConfig) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Watch.PollIntervalMs <= 0 {
		cfg.Watch.PollIntervalMs = defaultPollIntervalMs
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
}
