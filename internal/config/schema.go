package config

import "github.com/lhiwi/acis-insurance-project/internal/artifacts"

// PipelineConfig is the YAML tuning file for the scoring pipeline.
type PipelineConfig struct {
	Artifacts   artifacts.Files   `yaml:"artifacts"`
	Validation  ValidationConfig  `yaml:"validation"`
	Output      OutputConfig      `yaml:"output"`
	Explanation ExplanationConfig `yaml:"explanation"`
}

type ValidationConfig struct {
	RowCap int `yaml:"row_cap"`
}

type OutputConfig struct {
	PreviewRows  int    `yaml:"preview_rows"`
	DownloadName string `yaml:"download_name"`
}

// ExplanationConfig controls the attribution branch and the optional
// underwriter note.
type ExplanationConfig struct {
	RecordIndex int            `yaml:"record_index"`
	TopN        int            `yaml:"top_n"`
	Narrator    NarratorConfig `yaml:"narrator"`
}

type NarratorConfig struct {
	Enabled     bool    `yaml:"enabled"`
	Provider    string  `yaml:"provider"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	Retry       bool    `yaml:"retry"`
	Prompt      string  `yaml:"prompt"`
}
