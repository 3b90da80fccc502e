package scoring

import (
	"context"
	"errors"

	"github.com/lhiwi/acis-insurance-project/internal/database"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/store"
	"github.com/rs/zerolog"
)

var ErrHistoryDisabled = errors.New("run history is not configured")

type Pipeline interface {
	Execute(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error)
}

type RunRepository interface {
	InsertRun(ctx context.Context, run database.Run) error
	ListRuns(ctx context.Context, limit int) ([]database.Run, error)
}

// Service runs the pipeline and keeps what the outer surfaces need after
// the response: the CSV for download and, when a database is configured,
// the run summary.
type Service struct {
	pipeline Pipeline
	results  store.ResultStore
	runs     RunRepository
	logger   *zerolog.Logger
}

// NewService accepts a nil runs repository; Recent then reports
// ErrHistoryDisabled.
func NewService(pipeline Pipeline, results store.ResultStore, runs RunRepository, logger *zerolog.Logger) *Service {
	return &Service{
		pipeline: pipeline,
		results:  results,
		runs:     runs,
		logger:   logger,
	}
}

// Score returns pipeline errors unchanged. Failing to cache or record a
// completed run is logged and reported as a warning.
func (s *Service) Score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error) {
	result, err := s.pipeline.Execute(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("file", req.Filename).Msg("scoring failed")
		return nil, err
	}

	if err := s.results.Put(ctx, result.RunID, result.CSV); err != nil {
		s.logger.Warn().Err(err).Str("runID", result.RunID).Msg("failed to cache result")
		result.Warnings = append(result.Warnings, "Download unavailable: result could not be cached.")
	}

	if s.runs != nil {
		if err := s.runs.InsertRun(ctx, toRun(result)); err != nil {
			s.logger.Warn().Err(err).Str("runID", result.RunID).Msg("failed to record run")
		}
	}

	return result, nil
}

func (s *Service) Download(ctx context.Context, runID string) ([]byte, error) {
	return s.results.Get(ctx, runID)
}

func (s *Service) Recent(ctx context.Context, limit int) ([]database.Run, error) {
	if s.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return s.runs.ListRuns(ctx, limit)
}

func toRun(r *models.ScoringResult) database.Run {
	return database.Run{
		ID:           r.RunID,
		Filename:     r.Filename,
		Mode:         string(r.Options.Mode),
		Policies:     r.Summary.Policies,
		HighRisk:     r.Summary.HighRiskPolicies,
		PremiumLabel: r.Summary.PremiumLabel,
		PremiumValue: r.Summary.PremiumValue,
		Warnings:     len(r.Warnings),
		DurationMs:   r.Duration.Milliseconds(),
		CreatedAt:    r.CreatedAt,
	}
}
