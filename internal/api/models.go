package api

import (
	"github.com/lhiwi/acis-insurance-project/internal/models"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ScoreResponse struct {
	*models.ScoringResult
	DownloadURL string `json:"download_url"`
}

type FormatsResponse struct {
	Extensions      []string `json:"extensions"`
	RequiredColumns []string `json:"required_columns"`
	Help            string   `json:"help"`
}

type RunsResponse struct {
	Runs []RunSummary `json:"runs"`
}

type RunSummary struct {
	RunID        string `json:"run_id"`
	Filename     string `json:"filename"`
	Mode         string `json:"mode"`
	Policies     int    `json:"policies"`
	HighRisk     int    `json:"high_risk_policies"`
	PremiumLabel string `json:"premium_label"`
	// A number, or "inf"/"-inf"/"nan".
	PremiumValue any    `json:"premium_value"`
	DurationMs   int64  `json:"duration_ms"`
	CreatedAt    string `json:"created_at"`
}
