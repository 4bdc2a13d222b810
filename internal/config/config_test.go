package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spachava753/mixwatch/internal/config"
	"github.com/spachava753/mixwatch/internal/models"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing temp file: %v", err)
	}
	return path
}

func TestLoadPipelineConfigYAML(t *testing.T) {
	pipelineYaml := `name: site
log_level: debug
concurrency: 4
manifest_path: public/mix-manifest.json
watch:
  use_polling: true
  poll_interval_ms: 250
tasks:
  - name: vendor
    type: concat
    sources:
      - resources/a.js
      - resources/b.js
    output: public/vendor.js
  - name: images
    type: copy
    sources: [resources/logo.png]
    output: public/img
`

	cfg, err := config.LoadPipelineConfig(writeConfig(t, "mix.yaml", pipelineYaml))
	if err != nil {
		t.Fatalf("LoadPipelineConfig failed: %v", err)
	}

	if *cfg.Name != "site" {
		t.Errorf("expected name site, got %s", *cfg.Name)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected log_level debug, got %s", cfg.LogLevel)
	}

	if cfg.Concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", cfg.Concurrency)
	}

	if !cfg.Watch.UsePolling {
		t.Error("expected use_polling true")
	}

	if cfg.Watch.PollIntervalMs != 250 {
		t.Errorf("expected poll_interval_ms 250, got %d", cfg.Watch.PollIntervalMs)
	}

	if len(cfg.Tasks) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(cfg.Tasks))
	}

	if cfg.Tasks[0].Type != models.TaskTypeConcat {
		t.Errorf("expected first task type concat, got %s", cfg.Tasks[0].Type)
	}

	if got := strings.Join(cfg.Tasks[0].Sources, ","); got != "resources/a.js,resources/b.js" {
		t.Errorf("unexpected sources %s", got)
	}

	if cfg.Tasks[1].Output != "public/img" {
		t.Errorf("expected output public/img, got %s", cfg.Tasks[1].Output)
	}
}

func TestLoadPipelineConfigTOML(t *testing.T) {
	pipelineToml := `name = "site"
manifest_path = "public/mix-manifest.json"

[watch]
use_polling = false

[[tasks]]
name = "styles"
type = "concat"
sources = ["a.css", "b.css"]
output = "public/app.css"
`

	cfg, err := config.LoadPipelineConfig(writeConfig(t, "mix.toml", pipelineToml))
	if err != nil {
		t.Fatalf("LoadPipelineConfig failed: %v", err)
	}

	if cfg.ManifestPath != "public/mix-manifest.json" {
		t.Errorf("expected manifest path, got %s", cfg.ManifestPath)
	}

	if cfg.Concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", cfg.Concurrency)
	}

	if cfg.Watch.PollIntervalMs != 100 {
		t.Errorf("expected default poll_interval_ms 100, got %d", cfg.Watch.PollIntervalMs)
	}

	if len(cfg.Tasks) != 1 || cfg.Tasks[0].Name != "styles" {
		t.Errorf("expected single styles task, got %+v", cfg.Tasks)
	}
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := config.DefaultPipelineConfig()

	if cfg.Concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", cfg.Concurrency)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level info, got %s", cfg.LogLevel)
	}

	if cfg.Watch.UsePolling {
		t.Error("expected polling to be off by default")
	}

	if cfg.Watch.PollInterval().Milliseconds() != 100 {
		t.Errorf("expected default poll interval 100ms, got %s", cfg.Watch.PollInterval())
	}
}

func TestLoadPipelineConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "no tasks",
			content: "name: empty\n",
			wantErr: "no tasks",
		},
		{
			name: "unknown type",
			content: `tasks:
  - name: js
    type: webpack
    sources: [a.js]
    output: out.js
`,
			wantErr: "unsupported type",
		},
		{
			name: "duplicate name",
			content: `tasks:
  - {name: a, type: copy, sources: [x], output: out}
  - {name: a, type: copy, sources: [y], output: out}
`,
			wantErr: "duplicate name",
		},
		{
			name: "missing sources",
			content: `tasks:
  - {name: a, type: copy, output: out}
`,
			wantErr: "at least one source",
		},
		{
			name: "missing output",
			content: `tasks:
  - {name: a, type: concat, sources: [x]}
`,
			wantErr: "output is required",
		},
		{
			name: "copy sources sharing a base name",
			content: `tasks:
  - {name: a, type: copy, sources: [css/app.css, vendor/app.css], output: public}
`,
			wantErr: "both copy to \"app.css\"",
		},
		{
			name:    "malformed yaml",
			content: "tasks: [\n",
			wantErr: "parsing pipeline config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadPipelineConfig(writeConfig(t, "mix.yaml", tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadPipelineConfigMissingFile(t *testing.T) {
	_, err := config.LoadPipelineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestValidateConcatAllowsSharedBaseNames(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.Tasks = []models.TaskSpec{{
		Name:    "styles",
		Type:    models.TaskTypeConcat,
		Sources: []string{"css/app.css", "vendor/app.css"},
		Output:  "public/all.css",
	}}

	if err := config.Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
