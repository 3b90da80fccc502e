package setup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
	"github.com/lhiwi/acis-insurance-project/internal/config"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("MODEL_DIR", "/opt/models")
	t.Setenv("DEPLOYMENT_MODE", "staging")
	t.Setenv("VALIDATION_SAFEGUARDS", "false")
	t.Setenv("SHOW_EXPLANATIONS", "not-a-bool")
	t.Setenv("RESULT_TTL", "15m")
	t.Setenv("LLM_TIMEOUT_SECONDS", "2.5")
	t.Setenv("RISK_DB_HOST", "")

	cfg := LoadConfig()

	if cfg.ModelDir != "/opt/models" {
		t.Errorf("ModelDir = %s", cfg.ModelDir)
	}
	if cfg.ResultTTL != 15*time.Minute || cfg.LLMTimeout != 2500*time.Millisecond {
		t.Errorf("unexpected durations %v %v", cfg.ResultTTL, cfg.LLMTimeout)
	}
	if cfg.DB.Enabled() {
		t.Error("database should be disabled without RISK_DB_HOST")
	}

	opts, err := cfg.DefaultOptions()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.ScoringOptions{Mode: models.ModeStaging, Safeguards: false, ShowExplanations: false}
	if opts != want {
		t.Errorf("options = %+v, want %+v", opts, want)
	}

	cfg.DeploymentMode = "canary"
	if _, err := cfg.DefaultOptions(); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestNewExecutor_ShippedArtifacts(t *testing.T) {
	t.Setenv("PRICING_CONFIG_PATH", "../../configs/pricing.yaml")
	pipelineCfg, err := config.LoadPipelineConfig()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	exec, err := NewExecutor("../../models", pipelineCfg, nil, newTestLogger())
	if err != nil {
		t.Fatalf("failed to build executor: %v", err)
	}

	csv := strings.Join([]string{
		"TransactionMonth,PostalCode,RegistrationYear,VehicleType,SumInsured,CalculatedPremiumPerTerm,Province,make,Model",
		"2015-03-01,2000,2004,Passenger Vehicle,120000,95.5,Gauteng,TOYOTA,COROLLA",
		"2015-03-01,8000,2014,Heavy Commercial,750000,310.2,Western Cape,MERCEDES,ACTROS",
		"2015-04-01,4001,2009,Unknown,,80,Limpopo,VW,POLO",
	}, "\n") + "\n"

	result, err := exec.Execute(context.Background(), models.ScoringRequest{
		Filename: "policies.csv",
		Data:     []byte(csv),
		Options:  models.ScoringOptions{Mode: models.ModeProduction, ShowExplanations: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Summary.Policies != 3 || len(result.Preview) != 3 {
		t.Errorf("unexpected summary %+v", result.Summary)
	}
	if !result.Summary.ComparedToCurrent {
		t.Error("premium should be compared with CalculatedPremiumPerTerm")
	}
	if result.Explanation == nil || len(result.Explanation.Top) != 10 {
		t.Errorf("expected 10 top contributors, got %+v", result.Explanation)
	}
	if !strings.HasPrefix(string(result.CSV), "TransactionMonth,") {
		t.Errorf("unexpected CSV header %q", result.CSV[:40])
	}
}

func TestNewExecutor_MissingArtifacts(t *testing.T) {
	pipelineCfg := &config.PipelineConfig{Artifacts: artifacts.DefaultFiles}

	_, err := NewExecutor(t.TempDir(), pipelineCfg, nil, newTestLogger())

	var missing *artifacts.MissingError
	if !errors.As(err, &missing) || len(missing.Paths) != 3 {
		t.Errorf("expected MissingError for all three files, got %v", err)
	}
}
