package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
)

func TestLoadPipelineConfig_Success(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "pricing.yaml")

	configContent := `artifacts:
  classifier: clf.json
validation:
  row_cap: 1000
output:
  preview_rows: 5
explanation:
  top_n: 3
  narrator:
    enabled: true
    provider: openai
    temperature: 0.2
    retry: true
    prompt: |
      Policies: {{.Summary.Policies}}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	t.Setenv("PRICING_CONFIG_PATH", configPath)

	cfg, err := LoadPipelineConfig()
	if err != nil {
		t.Fatalf("LoadPipelineConfig() failed: %v", err)
	}

	if cfg.Artifacts.Classifier != "clf.json" {
		t.Errorf("Expected classifier clf.json, got %s", cfg.Artifacts.Classifier)
	}
	if cfg.Artifacts.Regressor != artifacts.DefaultFiles.Regressor {
		t.Errorf("Expected default regressor, got %s", cfg.Artifacts.Regressor)
	}
	if cfg.Validation.RowCap != 1000 || cfg.Output.PreviewRows != 5 || cfg.Explanation.TopN != 3 {
		t.Errorf("Unexpected values: %+v", cfg)
	}
	if cfg.Output.DownloadName != "acis_risk_assessment.csv" {
		t.Errorf("Expected default download name, got %s", cfg.Output.DownloadName)
	}

	n := cfg.NarratorSettings()
	if !cfg.Explanation.Narrator.Enabled || cfg.Explanation.Narrator.Provider != ProviderOpenAI {
		t.Errorf("Unexpected narrator block %+v", cfg.Explanation.Narrator)
	}
	if n.MaxTokens != 300 || !n.Retry || n.Temperature != 0.2 || n.Prompt == "" {
		t.Errorf("Unexpected narrator settings %+v", n)
	}
}

func TestLoadPipelineConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PRICING_CONFIG_PATH", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := LoadPipelineConfig()
	if err != nil {
		t.Fatalf("LoadPipelineConfig() failed: %v", err)
	}
	if cfg.Artifacts != artifacts.DefaultFiles {
		t.Errorf("Expected default artifact files, got %+v", cfg.Artifacts)
	}
	if cfg.Validation.RowCap != 5000 || cfg.Output.PreviewRows != 20 || cfg.Explanation.TopN != 10 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.Explanation.Narrator.Enabled {
		t.Error("Narrator should be disabled by default")
	}
}

func TestLoadPipelineConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "malformed yaml", content: "validation: [row_cap"},
		{name: "negative row cap", content: "validation:\n  row_cap: -1\n"},
		{name: "unknown provider", content: "explanation:\n  narrator:\n    provider: local\n"},
		{name: "temperature out of range", content: "explanation:\n  narrator:\n    temperature: 1.5\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "pricing.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}
			t.Setenv("PRICING_CONFIG_PATH", path)

			if _, err := LoadPipelineConfig(); err == nil {
				t.Error("Expected error")
			}
		})
	}
}
