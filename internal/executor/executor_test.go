package executor

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
	"github.com/lhiwi/acis-insurance-project/internal/assembler"
	"github.com/lhiwi/acis-insurance-project/internal/executor/mocks"
	"github.com/lhiwi/acis-insurance-project/internal/inference"
	"github.com/lhiwi/acis-insurance-project/internal/loader"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/schema"
	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type stageMocks struct {
	loader    *mocks.MockTableLoader
	validator *mocks.MockSchemaValidator
	scorer    *mocks.MockRiskScorer
	assembler *mocks.MockResultAssembler
	explainer *mocks.MockExplainer
	narrator  *mocks.MockNarrator
}

func newStageMocks(ctrl *gomock.Controller) stageMocks {
	return stageMocks{
		loader:    mocks.NewMockTableLoader(ctrl),
		validator: mocks.NewMockSchemaValidator(ctrl),
		scorer:    mocks.NewMockRiskScorer(ctrl),
		assembler: mocks.NewMockResultAssembler(ctrl),
		explainer: mocks.NewMockExplainer(ctrl),
		narrator:  mocks.NewMockNarrator(ctrl),
	}
}

func (m stageMocks) executor() *Executor {
	return NewExecutor(m.loader, m.validator, m.scorer, m.assembler, m.explainer, m.narrator, 0, newTestLogger())
}

func fixture(t *testing.T) (*table.Table, *schema.Result, *inference.Output, *assembler.Output) {
	t.Helper()
	raw, err := table.New([]string{"Postal Code", "make"}, [][]string{{"2000", "Toyota"}, {"8000", "VW"}, {"4001", "BMW"}, {"1", "Audi"}})
	if err != nil {
		t.Fatal(err)
	}
	validated := &schema.Result{
		Table:        raw.WithColumns([]string{"PostalCode", "make"}),
		Warnings:     []string{"Large dataset detected"},
		OriginalRows: 4,
	}
	scored := &inference.Output{
		Features: artifacts.Dense{{1, 0}, {0, 1}, {1, 1}, {0, 0}},
		Results: []models.RiskResult{
			{ClaimProbability: 0.5, NegativeClassProbability: 0.5, PredictedClaim: true, ExpectedSeverity: 1000},
			{ClaimProbability: 0.2, NegativeClassProbability: 0.8, ExpectedSeverity: 2000},
			{ClaimProbability: 0.9, NegativeClassProbability: 0.1, PredictedClaim: true, ExpectedSeverity: 10},
			{ClaimProbability: 0.1, NegativeClassProbability: 0.9, ExpectedSeverity: 10},
		},
	}
	outTable, _ := table.New([]string{"PostalCode", "Risk_Score"}, [][]string{{"2000", "0.5"}})
	assembled := &assembler.Output{
		Table:   outTable,
		Summary: models.Summary{Policies: 4, HighRiskPolicies: 1, PremiumLabel: assembler.LabelRecommendedPremium},
		Preview: []models.PreviewRow{{RiskScore: "50.00%"}},
	}
	return raw, validated, scored, assembled
}

func TestExecutor_Execute_FullPipeline(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := newStageMocks(ctrl)
	raw, validated, scored, assembled := fixture(t)

	req := models.ScoringRequest{
		RequestID: "run-001",
		Filename:  "policies.csv",
		Data:      []byte("ignored"),
		Options:   models.ScoringOptions{Mode: models.ModeValidation, Safeguards: true},
	}

	m.loader.EXPECT().Load("policies.csv", req.Data).Return(raw, nil)
	m.validator.EXPECT().Validate(raw, true).Return(validated, nil)
	m.scorer.EXPECT().Score(validated.Table, models.ModeValidation).Return(scored, nil)
	m.assembler.EXPECT().
		Assemble(validated.Table, scored.Results, gomock.Any()).
		DoAndReturn(func(_ *table.Table, _ []models.RiskResult, prices []models.PricingResult) (*assembler.Output, error) {
			if len(prices) != 4 {
				t.Errorf("expected 4 premiums, got %d", len(prices))
			}
			if math.Abs(prices[0].RecommendedPremium-775) > 1e-9 {
				t.Errorf("premium 0 = %v, want 775", prices[0].RecommendedPremium)
			}
			return assembled, nil
		})

	result, err := m.executor().Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RunID != "run-001" {
		t.Errorf("expected run ID run-001, got %s", result.RunID)
	}
	if result.Raw.Rows != 4 || result.Raw.Columns != 2 || len(result.Raw.Sample) != 3 {
		t.Errorf("unexpected raw preview %+v", result.Raw)
	}
	if result.Raw.Header[0] != "Postal Code" {
		t.Errorf("raw preview should keep original labels, got %v", result.Raw.Header)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected validator warning to propagate, got %v", result.Warnings)
	}
	if result.Summary.Policies != 4 || len(result.Preview) != 1 {
		t.Errorf("unexpected summary/preview %+v %+v", result.Summary, result.Preview)
	}
	if string(result.CSV) != "PostalCode,Risk_Score\n2000,0.5\n" {
		t.Errorf("unexpected CSV %q", result.CSV)
	}
	if result.Explanation != nil || result.Note != "" {
		t.Error("explanation should not run when disabled")
	}
}

func TestExecutor_Execute_WithExplanation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := newStageMocks(ctrl)
	raw, validated, scored, assembled := fixture(t)

	req := models.ScoringRequest{
		Filename: "policies.csv",
		Options:  models.ScoringOptions{Mode: models.ModeProduction, ShowExplanations: true},
	}
	explanation := &models.Explanation{Top: []models.Contribution{{Feature: "num__a", Impact: 1}}}

	m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(raw, nil)
	m.validator.EXPECT().Validate(raw, false).Return(validated, nil)
	m.scorer.EXPECT().Score(validated.Table, models.ModeProduction).Return(scored, nil)
	m.assembler.EXPECT().Assemble(gomock.Any(), gomock.Any(), gomock.Any()).Return(assembled, nil)
	m.scorer.EXPECT().FeatureNames(2).Return([]string{"num__a", "num__b"})
	m.explainer.EXPECT().Explain(scored.Features, 0, []string{"num__a", "num__b"}).Return(explanation, nil)
	m.narrator.EXPECT().Narrate(gomock.Any(), assembled.Summary, explanation).Return("Review policy 0.", nil)

	result, err := m.executor().Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected generated run ID")
	}
	if result.Explanation != explanation || result.Note != "Review policy 0." {
		t.Errorf("unexpected explanation/note %+v %q", result.Explanation, result.Note)
	}
}

func TestExecutor_Execute_ExplanationFailuresAreWarnings(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := newStageMocks(ctrl)
	raw, validated, scored, assembled := fixture(t)
	validated.Warnings = nil

	m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(raw, nil)
	m.validator.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(validated, nil)
	m.scorer.EXPECT().Score(gomock.Any(), models.ModeValidation).Return(scored, nil)
	m.assembler.EXPECT().Assemble(gomock.Any(), gomock.Any(), gomock.Any()).Return(assembled, nil)
	m.scorer.EXPECT().FeatureNames(2).Return([]string{"Feature_0", "Feature_1"})
	m.explainer.EXPECT().Explain(gomock.Any(), 0, gomock.Any()).Return(nil, errors.New("attribution failed"))

	// Mode left empty defaults to Validation.
	result, err := m.executor().Execute(context.Background(), models.ScoringRequest{
		Filename: "policies.csv",
		Options:  models.ScoringOptions{ShowExplanations: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Options.Mode != models.ModeValidation {
		t.Errorf("expected default mode Validation, got %s", result.Options.Mode)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "attribution failed") {
		t.Errorf("unexpected warnings %v", result.Warnings)
	}
}

func TestExecutor_Execute_StageErrors(t *testing.T) {
	unsupported := &loader.UnsupportedFormatError{Extension: ".docx"}
	missing := &schema.MissingColumnsError{Missing: []string{"make"}}
	inferenceErr := &inference.Error{Stage: inference.StageClassify, Err: errors.New("boom")}

	tests := []struct {
		name   string
		setup  func(m stageMocks, raw *table.Table, validated *schema.Result)
		target any
	}{
		{
			name: "unsupported format",
			setup: func(m stageMocks, _ *table.Table, _ *schema.Result) {
				m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, unsupported)
			},
			target: new(*loader.UnsupportedFormatError),
		},
		{
			name: "missing columns",
			setup: func(m stageMocks, raw *table.Table, _ *schema.Result) {
				m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(raw, nil)
				m.validator.EXPECT().Validate(raw, gomock.Any()).Return(nil, missing)
			},
			target: new(*schema.MissingColumnsError),
		},
		{
			name: "inference failure",
			setup: func(m stageMocks, raw *table.Table, validated *schema.Result) {
				m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(raw, nil)
				m.validator.EXPECT().Validate(raw, gomock.Any()).Return(validated, nil)
				m.scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return(nil, inferenceErr)
			},
			target: new(*inference.Error),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			m := newStageMocks(ctrl)
			raw, validated, _, _ := fixture(t)
			tt.setup(m, raw, validated)

			result, err := m.executor().Execute(context.Background(), models.ScoringRequest{Filename: "x"})
			if result != nil {
				t.Errorf("expected no partial result, got %+v", result)
			}
			if !errors.As(err, tt.target) {
				t.Errorf("expected %T, got %v", tt.target, err)
			}
		})
	}
}

func TestExecutor_Execute_CancelledContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := newStageMocks(ctrl)
	raw, _, _, _ := fixture(t)

	m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(raw, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.executor().Execute(ctx, models.ScoringRequest{Filename: "policies.csv"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExecutor_Execute_CancelledBetweenStages(t *testing.T) {
	tests := []struct {
		name        string
		cancelAfter string
		wantScore   bool
	}{
		{name: "cancelled during validation", cancelAfter: "validate"},
		{name: "cancelled during scoring", cancelAfter: "score", wantScore: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()
			m := newStageMocks(ctrl)
			raw, validated, scored, _ := fixture(t)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(raw, nil)
			m.validator.EXPECT().Validate(gomock.Any(), gomock.Any()).DoAndReturn(
				func(*table.Table, bool) (*schema.Result, error) {
					if tt.cancelAfter == "validate" {
						cancel()
					}
					return validated, nil
				})
			if tt.wantScore {
				m.scorer.EXPECT().Score(gomock.Any(), gomock.Any()).DoAndReturn(
					func(*table.Table, models.DeploymentMode) (*inference.Output, error) {
						cancel()
						return scored, nil
					})
			}
			// Any unexpected Score or Assemble call fails the test through gomock.

			_, err := m.executor().Execute(ctx, models.ScoringRequest{Filename: "policies.csv"})
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		})
	}
}

func TestExecutor_Execute_NoExplainerConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	m := newStageMocks(ctrl)
	raw, validated, scored, assembled := fixture(t)

	m.loader.EXPECT().Load(gomock.Any(), gomock.Any()).Return(raw, nil)
	m.validator.EXPECT().Validate(gomock.Any(), gomock.Any()).Return(validated, nil)
	m.scorer.EXPECT().Score(gomock.Any(), gomock.Any()).Return(scored, nil)
	m.assembler.EXPECT().Assemble(gomock.Any(), gomock.Any(), gomock.Any()).Return(assembled, nil)

	exec := NewExecutor(m.loader, m.validator, m.scorer, m.assembler, nil, nil, 0, newTestLogger())
	result, err := exec.Execute(context.Background(), models.ScoringRequest{
		Filename: "policies.csv",
		Options:  models.ScoringOptions{ShowExplanations: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Explanation != nil || len(result.Warnings) != 2 {
		t.Errorf("expected a warning and no explanation, got %v", result.Warnings)
	}
}
