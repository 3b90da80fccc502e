package database

import "time"

// Run is one row of scoring_runs: the summary of a completed scoring run.
type Run struct {
	ID           string    `json:"run_id"`
	Filename     string    `json:"filename"`
	Mode         string    `json:"mode"`
	Policies     int       `json:"policies"`
	HighRisk     int       `json:"high_risk_policies"`
	PremiumLabel string    `json:"premium_label"`
	PremiumValue float64   `json:"premium_value"`
	Warnings     int       `json:"warnings"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}
