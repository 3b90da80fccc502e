package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/database"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/schema"
	"github.com/lhiwi/acis-insurance-project/internal/store"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

type fakePipeline struct {
	result *models.ScoringResult
	err    error
}

func (f *fakePipeline) Execute(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error) {
	return f.result, f.err
}

type fakeRuns struct {
	inserted []database.Run
	err      error
}

func (f *fakeRuns) InsertRun(ctx context.Context, run database.Run) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, run)
	return nil
}

func (f *fakeRuns) ListRuns(ctx context.Context, limit int) ([]database.Run, error) {
	return f.inserted, nil
}

type failingStore struct{}

func (failingStore) Put(ctx context.Context, runID string, csv []byte) error {
	return errors.New("connection refused")
}

func (failingStore) Get(ctx context.Context, runID string) ([]byte, error) {
	return nil, store.ErrNotFound
}

func sampleResult() *models.ScoringResult {
	return &models.ScoringResult{
		RunID:    "run-42",
		Filename: "policies.csv",
		Options:  models.ScoringOptions{Mode: models.ModeStaging},
		Summary:  models.Summary{Policies: 3, HighRiskPolicies: 1, PremiumLabel: "Avg. Recommended Premium", PremiumValue: 500},
		CSV:      []byte("a\n1\n"),
		Duration: 1500 * time.Millisecond,
	}
}

func TestService_Score(t *testing.T) {
	ctx := context.Background()
	runs := &fakeRuns{}
	results := store.NewMemoryStore(time.Minute)
	svc := NewService(&fakePipeline{result: sampleResult()}, results, runs, newTestLogger())

	result, err := svc.Score(ctx, models.ScoringRequest{Filename: "policies.csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings %v", result.Warnings)
	}

	csv, err := svc.Download(ctx, "run-42")
	if err != nil || string(csv) != "a\n1\n" {
		t.Errorf("download got %q, %v", csv, err)
	}

	recent, err := svc.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(recent))
	}
	run := recent[0]
	if run.ID != "run-42" || run.Mode != "Staging" || run.HighRisk != 1 || run.DurationMs != 1500 {
		t.Errorf("unexpected run %+v", run)
	}
}

func TestService_Score_PipelineError(t *testing.T) {
	runs := &fakeRuns{}
	pipelineErr := &schema.MissingColumnsError{Missing: []string{"PostalCode"}}
	svc := NewService(&fakePipeline{err: pipelineErr}, store.NewMemoryStore(0), runs, newTestLogger())

	_, err := svc.Score(context.Background(), models.ScoringRequest{})

	var missing *schema.MissingColumnsError
	if !errors.As(err, &missing) {
		t.Errorf("expected MissingColumnsError, got %v", err)
	}
	if len(runs.inserted) != 0 {
		t.Error("failed runs must not be recorded")
	}
}

func TestService_Score_SideEffectFailures(t *testing.T) {
	runs := &fakeRuns{err: errors.New("db down")}
	svc := NewService(&fakePipeline{result: sampleResult()}, failingStore{}, runs, newTestLogger())

	result, err := svc.Score(context.Background(), models.ScoringRequest{})
	if err != nil {
		t.Fatalf("side effect failures should not fail the run: %v", err)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("expected cache warning, got %v", result.Warnings)
	}
}

func TestService_Recent_Disabled(t *testing.T) {
	svc := NewService(&fakePipeline{}, store.NewMemoryStore(0), nil, newTestLogger())

	if _, err := svc.Recent(context.Background(), 5); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("expected ErrHistoryDisabled, got %v", err)
	}
}
