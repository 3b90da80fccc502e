package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
	"github.com/lhiwi/acis-insurance-project/internal/assembler"
	"github.com/lhiwi/acis-insurance-project/internal/explain"
	"github.com/lhiwi/acis-insurance-project/internal/schema"
	"gopkg.in/yaml.v3"
)

const (
	ProviderBedrock = "bedrock"
	ProviderOpenAI  = "openai"
)

// LoadPipelineConfig reads PRICING_CONFIG_PATH (default
// configs/pricing.yaml). A missing file yields the defaults.
func LoadPipelineConfig() (*PipelineConfig, error) {
	path := os.Getenv("PRICING_CONFIG_PATH")
	if path == "" {
		path = "configs/pricing.yaml"
	}

	var cfg PipelineConfig

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *PipelineConfig) {
	if cfg.Artifacts.Classifier == "" {
		cfg.Artifacts.Classifier = artifacts.DefaultFiles.Classifier
	}
	if cfg.Artifacts.Regressor == "" {
		cfg.Artifacts.Regressor = artifacts.DefaultFiles.Regressor
	}
	if cfg.Artifacts.Transformer == "" {
		cfg.Artifacts.Transformer = artifacts.DefaultFiles.Transformer
	}
	if cfg.Validation.RowCap == 0 {
		cfg.Validation.RowCap = schema.DefaultRowCap
	}
	if cfg.Output.PreviewRows == 0 {
		cfg.Output.PreviewRows = assembler.DefaultPreviewRows
	}
	if cfg.Output.DownloadName == "" {
		cfg.Output.DownloadName = assembler.DownloadFilename
	}
	if cfg.Explanation.TopN == 0 {
		cfg.Explanation.TopN = explain.DefaultTopN
	}
	if cfg.Explanation.Narrator.Provider == "" {
		cfg.Explanation.Narrator.Provider = ProviderBedrock
	}
	if cfg.Explanation.Narrator.MaxTokens == 0 {
		cfg.Explanation.Narrator.MaxTokens = 300
	}
}

func (c *PipelineConfig) Validate() error {
	if c.Validation.RowCap < 0 {
		return fmt.Errorf("validation.row_cap must be positive, got %d", c.Validation.RowCap)
	}
	if c.Output.PreviewRows < 0 {
		return fmt.Errorf("output.preview_rows must be positive, got %d", c.Output.PreviewRows)
	}
	if c.Explanation.TopN < 0 {
		return fmt.Errorf("explanation.top_n must be positive, got %d", c.Explanation.TopN)
	}
	if c.Explanation.RecordIndex < 0 {
		return fmt.Errorf("explanation.record_index must not be negative, got %d", c.Explanation.RecordIndex)
	}
	switch c.Explanation.Narrator.Provider {
	case ProviderBedrock, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown narrator provider %q", c.Explanation.Narrator.Provider)
	}
	if t := c.Explanation.Narrator.Temperature; t < 0 || t > 1 {
		return fmt.Errorf("narrator temperature must be in [0, 1], got %v", t)
	}
	return nil
}

// NarratorSettings converts the YAML block for explain.NewNarrator.
func (c *PipelineConfig) NarratorSettings() explain.NarratorConfig {
	n := c.Explanation.Narrator
	return explain.NarratorConfig{
		Prompt:      n.Prompt,
		MaxTokens:   n.MaxTokens,
		Temperature: n.Temperature,
		Retry:       n.Retry,
	}
}
