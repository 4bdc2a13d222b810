package models

import "time"

// Built-in task types.
const (
	TaskTypeCopy   = "copy"
	TaskTypeConcat = "concat"
)

// PipelineConfig represents the parsed pipeline config file.
type PipelineConfig struct {
	Name         *string     `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	LogLevel     string      `yaml:"log_level,omitempty" toml:"log_level,omitempty" json:"log_level,omitempty"`
	Concurrency  int         `yaml:"concurrency" toml:"concurrency" json:"concurrency"`
	ManifestPath string      `yaml:"manifest_path,omitempty" toml:"manifest_path,omitempty" json:"manifest_path,omitempty"`
	Watch        WatchConfig `yaml:"watch" toml:"watch" json:"watch"`
	Tasks        []TaskSpec  `yaml:"tasks" toml:"tasks" json:"tasks"`
}

type WatchConfig struct {
	UsePolling     bool `yaml:"use_polling" toml:"use_polling" json:"use_polling"`
	PollIntervalMs int  `yaml:"poll_interval_ms" toml:"poll_interval_ms" json:"poll_interval_ms"`
}

// PollInterval returns the polling period as a duration.
func (w WatchConfig) PollInterval() time.Duration {
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

// TaskSpec describes one task in the pipeline.
type TaskSpec struct {
	Name    string   `yaml:"name" toml:"name" json:"name"`
	Type    string   `yaml:"type" toml:"type" json:"type"`
	Sources []string `yaml:"sources" toml:"sources" json:"sources"`
	Output  string   `yaml:"output" toml:"output" json:"output"`
}

// PipelineResult contains the outcome of a single pipeline run.
type PipelineResult struct {
	Name             string       `json:"name"`
	Cancelled        bool         `json:"cancelled"`
	TotalTasks       int          `json:"total_tasks"`
	SucceededTasks   int          `json:"succeeded_tasks"`
	FailedTasks      int          `json:"failed_tasks"`
	TotalDurationSec float64      `json:"total_duration_sec"`
	StartedAt        time.Time    `json:"started_at"`
	EndedAt          time.Time    `json:"ended_at"`
	Results          []TaskResult `json:"results"`
}

// TaskResult contains the outcome of running one task.
type TaskResult struct {
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Assets      []string   `json:"assets"`
	DurationSec float64    `json:"duration_sec"`
	Error       *TaskError `json:"error"`
}
