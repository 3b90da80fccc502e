package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
	"github.com/lhiwi/acis-insurance-project/internal/assembler"
	"github.com/lhiwi/acis-insurance-project/internal/inference"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/pricing"
	"github.com/lhiwi/acis-insurance-project/internal/schema"
	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/rs/zerolog"
)

const rawPreviewRows = 3

// TableLoader parses an uploaded file into a table
type TableLoader interface {
	Load(filename string, data []byte) (*table.Table, error)
}

// SchemaValidator normalizes labels and enforces the input contract
type SchemaValidator interface {
	Validate(t *table.Table, safeguards bool) (*schema.Result, error)
}

// RiskScorer runs the preprocessing transformer and both models
type RiskScorer interface {
	Score(t *table.Table, mode models.DeploymentMode) (*inference.Output, error)
	FeatureNames(width int) []string
}

// ResultAssembler builds the output table and summary
type ResultAssembler interface {
	Assemble(t *table.Table, risks []models.RiskResult, prices []models.PricingResult) (*assembler.Output, error)
}

type Explainer interface {
	Explain(features artifacts.Dense, index int, names []string) (*models.Explanation, error)
}

type Narrator interface {
	Narrate(ctx context.Context, summary models.Summary, explanation *models.Explanation) (string, error)
}

// Executor runs load -> validate -> score -> price -> assemble for one
// request. Explainer and Narrator are optional; their failures become
// warnings on the result.
type Executor struct {
	loader      TableLoader
	validator   SchemaValidator
	scorer      RiskScorer
	assembler   ResultAssembler
	explainer   Explainer
	narrator    Narrator
	recordIndex int
	logger      *zerolog.Logger
}

func NewExecutor(
	loader TableLoader,
	validator SchemaValidator,
	scorer RiskScorer,
	assembler ResultAssembler,
	explainer Explainer,
	narrator Narrator,
	recordIndex int,
	logger *zerolog.Logger,
) *Executor {
	return &Executor{
		loader:      loader,
		validator:   validator,
		scorer:      scorer,
		assembler:   assembler,
		explainer:   explainer,
		narrator:    narrator,
		recordIndex: recordIndex,
		logger:      logger,
	}
}

// Execute returns the first stage error unchanged, so callers can match the
// typed errors of each stage. No partial result is returned on error.
func (e *Executor) Execute(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error) {
	now := time.Now()

	id := req.RequestID
	if id == "" {
		id = uuid.NewString()
	}
	opts := req.Options
	if opts.Mode == "" {
		opts.Mode = models.ModeValidation
	}

	logger := e.logger.With().Str("runID", id).Str("file", req.Filename).Logger()
	logger.Info().
		Str("mode", string(opts.Mode)).
		Bool("safeguards", opts.Safeguards).
		Bool("explain", opts.ShowExplanations).
		Int("bytes", len(req.Data)).
		Msg("starting scoring run")

	raw, err := e.loader.Load(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}

	result := &models.ScoringResult{
		RunID:     id,
		Filename:  req.Filename,
		Options:   opts,
		Raw:       rawPreview(raw),
		CreatedAt: now.UTC(),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validated, err := e.validator.Validate(raw, opts.Safeguards)
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, validated.Warnings...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scored, err := e.scorer.Score(validated.Table, opts.Mode)
	if err != nil {
		return nil, err
	}

	prices := pricing.PriceAll(scored.Results, opts.Mode)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := e.assembler.Assemble(validated.Table, scored.Results, prices)
	if err != nil {
		return nil, err
	}
	result.Summary = out.Summary
	result.Preview = out.Preview

	csv, err := out.Table.EncodeCSV()
	if err != nil {
		return nil, fmt.Errorf("failed to encode results: %w", err)
	}
	result.CSV = csv

	if opts.ShowExplanations {
		e.explain(ctx, &logger, scored, result)
	}

	result.Duration = time.Since(now)
	logger.Info().
		Int("policies", result.Summary.Policies).
		Int("highRisk", result.Summary.HighRiskPolicies).
		Int("warnings", len(result.Warnings)).
		Dur("duration", result.Duration).
		Msg("scoring run complete")

	return result, nil
}

func (e *Executor) explain(ctx context.Context, logger *zerolog.Logger, scored *inference.Output, result *models.ScoringResult) {
	if e.explainer == nil {
		result.Warnings = append(result.Warnings, "Explanations are not available for the loaded classifier.")
		return
	}

	index := e.recordIndex
	if index >= len(scored.Features) {
		index = 0
	}

	names := e.scorer.FeatureNames(len(scored.Features[index]))
	explanation, err := e.explainer.Explain(scored.Features, index, names)
	if err != nil {
		logger.Warn().Err(err).Msg("explanation failed")
		result.Warnings = append(result.Warnings, fmt.Sprintf("Explanation failed: %v", err))
		return
	}
	result.Explanation = explanation

	if e.narrator == nil {
		return
	}
	note, err := e.narrator.Narrate(ctx, result.Summary, explanation)
	if err != nil {
		logger.Warn().Err(err).Msg("underwriter note failed")
		result.Warnings = append(result.Warnings, "Underwriter note unavailable.")
		return
	}
	result.Note = note
}

func rawPreview(t *table.Table) models.RawPreview {
	head := t.Head(rawPreviewRows)
	sample := make([][]string, len(head.Rows))
	for i, row := range head.Rows {
		sample[i] = append([]string(nil), row...)
	}
	return models.RawPreview{
		Rows:    t.NumRows(),
		Columns: t.NumColumns(),
		Header:  append([]string(nil), t.Columns...),
		Sample:  sample,
	}
}
