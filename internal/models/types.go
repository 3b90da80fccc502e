package models

import (
	"fmt"
	"strings"
	"time"
)

type DeploymentMode string

const (
	ModeValidation DeploymentMode = "Validation"
	ModeStaging    DeploymentMode = "Staging"
	ModeProduction DeploymentMode = "Production"
)

// ParseDeploymentMode accepts the mode name in any letter case.
func ParseDeploymentMode(s string) (DeploymentMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "validation":
		return ModeValidation, nil
	case "staging":
		return ModeStaging, nil
	case "production":
		return ModeProduction, nil
	}
	return "", fmt.Errorf("unknown deployment mode %q (expected Validation, Staging or Production)", s)
}

type ScoringOptions struct {
	Mode             DeploymentMode `json:"mode"`
	Safeguards       bool           `json:"validation_safeguards"`
	ShowExplanations bool           `json:"show_explanations"`
}

// Input message

type ScoringRequest struct {
	RequestID string         `json:"request_id"`
	Filename  string         `json:"filename"`
	Data      []byte         `json:"-"`
	Options   ScoringOptions `json:"options"`
}

// Per-policy model output
type RiskResult struct {
	ClaimProbability         float64 `json:"claim_probability"`
	NegativeClassProbability float64 `json:"negative_class_probability"`
	PredictedClaim           bool    `json:"predicted_claim"`
	ExpectedSeverity         float64 `json:"expected_severity"`
}

type PricingResult struct {
	RecommendedPremium float64 `json:"recommended_premium"`
}

type RawPreview struct {
	Rows    int        `json:"rows"`
	Columns int        `json:"columns"`
	Header  []string   `json:"header"`
	Sample  [][]string `json:"sample"`
}

type Summary struct {
	Policies         int     `json:"policies"`
	HighRiskPolicies int     `json:"high_risk_policies"`
	PremiumLabel     string  `json:"premium_label"`
	PremiumValue     float64 `json:"premium_value"`
	// ComparedToCurrent is true when PremiumValue is the mean adjustment
	// against CalculatedPremiumPerTerm.
	ComparedToCurrent bool `json:"compared_to_current"`
}

// Display-formatted scored row
type PreviewRow struct {
	RiskScore          string `json:"risk_score"`
	PredictedClaim     int    `json:"predicted_claim"`
	ExpectedSeverity   string `json:"expected_severity"`
	RecommendedPremium string `json:"recommended_premium"`
}

type Contribution struct {
	Feature string  `json:"feature"`
	Impact  float64 `json:"impact"`
}

type Explanation struct {
	RecordIndex   int                `json:"record_index"`
	ExpectedValue float64            `json:"expected_value"`
	Impacts       map[string]float64 `json:"impacts"`
	Top           []Contribution     `json:"top_contributors"`
}

// Final output of one scoring run
type ScoringResult struct {
	RunID       string         `json:"run_id"`
	Filename    string         `json:"filename"`
	Options     ScoringOptions `json:"options"`
	Raw         RawPreview     `json:"raw_preview"`
	Warnings    []string       `json:"warnings,omitempty"`
	Summary     Summary        `json:"summary"`
	Preview     []PreviewRow   `json:"preview"`
	Explanation *Explanation   `json:"explanation,omitempty"`
	Note        string         `json:"underwriter_note,omitempty"`
	CSV         []byte         `json:"-"`
	Duration    time.Duration  `json:"duration_ns"`
	CreatedAt   time.Time      `json:"created_at"`
}
