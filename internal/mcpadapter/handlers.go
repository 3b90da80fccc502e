package mcpadapter

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/lhiwi/acis-insurance-project/internal/assembler"
	"github.com/lhiwi/acis-insurance-project/internal/loader"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/schema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ScorePolicyFileInput is the MCP tool input schema for score_policy_file.
type ScorePolicyFileInput struct {
	Path       string `json:"path" jsonschema:"path of a .csv, .txt, .xlsx, .xls, .json or .parquet policy file"`
	Mode       string `json:"mode,omitempty" jsonschema:"deployment mode: Validation, Staging or Production"`
	Safeguards *bool  `json:"safeguards,omitempty" jsonschema:"sample the first 5000 records of large files"`
	Explain    *bool  `json:"explain,omitempty" jsonschema:"include top risk contributors for the first record"`
	OutputPath string `json:"output_path,omitempty" jsonschema:"optional path to write the scored CSV to"`
}

// ScorePolicyFileOutput is a flattened ScoringResult.
type ScorePolicyFileOutput struct {
	RunID            string                `json:"run_id"`
	Mode             string                `json:"mode"`
	Policies         int                   `json:"policies"`
	HighRiskPolicies int                   `json:"high_risk_policies"`
	PremiumLabel     string                `json:"premium_label"`
	PremiumValue     *float64              `json:"premium_value,omitempty" jsonschema:"absent when the premium metric is not finite"`
	PremiumDisplay   string                `json:"premium_display"`
	Warnings         []string              `json:"warnings,omitempty"`
	Preview          []models.PreviewRow   `json:"preview"`
	TopContributors  []models.Contribution `json:"top_contributors,omitempty"`
	UnderwriterNote  string                `json:"underwriter_note,omitempty"`
	OutputPath       string                `json:"output_path,omitempty"`
}

type Scorer interface {
	Score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error)
}

// NewScorePolicyFileHandler returns a tool handler that uses the given scorer.
// Pass the returned function to mcp.AddTool.
func NewScorePolicyFileHandler(scorer Scorer, defaults models.ScoringOptions) func(context.Context, *mcp.CallToolRequest, ScorePolicyFileInput) (*mcp.CallToolResult, ScorePolicyFileOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ScorePolicyFileInput) (*mcp.CallToolResult, ScorePolicyFileOutput, error) {
		return ScorePolicyFile(ctx, scorer, defaults, input)
	}
}

// ScorePolicyFile scores the file at input.Path and optionally writes the
// scored CSV next to it.
func ScorePolicyFile(
	ctx context.Context,
	scorer Scorer,
	defaults models.ScoringOptions,
	input ScorePolicyFileInput,
) (*mcp.CallToolResult, ScorePolicyFileOutput, error) {
	job := models.ScoringJob{
		Path:       input.Path,
		Mode:       input.Mode,
		Safeguards: input.Safeguards,
		Explain:    input.Explain,
	}

	scoringReq, err := job.Request(defaults)
	if err != nil {
		return nil, ScorePolicyFileOutput{}, err
	}

	result, err := scorer.Score(ctx, scoringReq)
	if err != nil {
		return nil, ScorePolicyFileOutput{}, err
	}

	out := ScorePolicyFileOutput{
		RunID:            result.RunID,
		Mode:             string(result.Options.Mode),
		Policies:         result.Summary.Policies,
		HighRiskPolicies: result.Summary.HighRiskPolicies,
		PremiumLabel:     result.Summary.PremiumLabel,
		PremiumDisplay:   assembler.FormatSummaryValue(result.Summary),
		Warnings:         result.Warnings,
		Preview:          result.Preview,
		UnderwriterNote:  result.Note,
	}
	if v := result.Summary.PremiumValue; !math.IsNaN(v) && !math.IsInf(v, 0) {
		out.PremiumValue = &v
	}
	if result.Explanation != nil {
		out.TopContributors = result.Explanation.Top
	}

	if input.OutputPath != "" {
		if err := os.WriteFile(input.OutputPath, result.CSV, 0644); err != nil {
			return nil, ScorePolicyFileOutput{}, fmt.Errorf("failed to write %s: %w", input.OutputPath, err)
		}
		out.OutputPath = input.OutputPath
	}

	return nil, out, nil
}

type SupportedFormatsInput struct{}

type SupportedFormatsOutput struct {
	Extensions      []string `json:"extensions"`
	RequiredColumns []string `json:"required_columns"`
	Modes           []string `json:"modes"`
}

// SupportedFormats describes what score_policy_file accepts.
func SupportedFormats(ctx context.Context, req *mcp.CallToolRequest, input SupportedFormatsInput) (*mcp.CallToolResult, SupportedFormatsOutput, error) {
	return nil, SupportedFormatsOutput{
		Extensions:      loader.SupportedExtensions(),
		RequiredColumns: append([]string(nil), schema.RequiredColumns...),
		Modes: []string{
			string(models.ModeValidation),
			string(models.ModeStaging),
			string(models.ModeProduction),
		},
	}, nil
}
