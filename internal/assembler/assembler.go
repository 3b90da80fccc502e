package assembler

import (
	"fmt"

	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/rs/zerolog"
)

const (
	ColumnRiskScore          = "Risk_Score"
	ColumnPredictedClaim     = "Predicted_Claim"
	ColumnExpectedSeverity   = "Expected_Severity"
	ColumnRecommendedPremium = "Recommended_Premium"

	CurrentPremiumColumn = "CalculatedPremiumPerTerm"

	LabelPremiumAdjustment  = "Avg. Premium Adjustment"
	LabelRecommendedPremium = "Avg. Recommended Premium"

	HighRiskScore      = 0.7
	DefaultPreviewRows = 20
	DownloadFilename   = "acis_risk_assessment.csv"
)

// DerivedColumns are appended in this order.
var DerivedColumns = []string{
	ColumnRiskScore,
	ColumnPredictedClaim,
	ColumnExpectedSeverity,
	ColumnRecommendedPremium,
}

type Output struct {
	Table   *table.Table
	Summary models.Summary
	Preview []models.PreviewRow
}

type Assembler struct {
	previewRows int
	logger      *zerolog.Logger
}

func NewAssembler(previewRows int, logger *zerolog.Logger) *Assembler {
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}
	return &Assembler{
		previewRows: previewRows,
		logger:      logger,
	}
}

// Assemble copies the validated table and appends the four derived columns.
// Row order is preserved and the input table is not modified.
func (a *Assembler) Assemble(t *table.Table, risks []models.RiskResult, prices []models.PricingResult) (*Output, error) {
	n := t.NumRows()
	if len(risks) != n || len(prices) != n {
		return nil, fmt.Errorf("result count mismatch: %d records, %d risk results, %d premiums", n, len(risks), len(prices))
	}

	scores := make([]string, n)
	claims := make([]string, n)
	severities := make([]string, n)
	premiums := make([]string, n)

	for i := range risks {
		scores[i] = table.FormatFloat(risks[i].ClaimProbability)
		claims[i] = claimFlag(risks[i].PredictedClaim)
		severities[i] = table.FormatFloat(risks[i].ExpectedSeverity)
		premiums[i] = table.FormatFloat(prices[i].RecommendedPremium)
	}

	out := t.Clone()
	for i, values := range [][]string{scores, claims, severities, premiums} {
		if err := out.SetColumn(DerivedColumns[i], values); err != nil {
			return nil, err
		}
	}

	summary, err := a.summarize(t, risks, prices)
	if err != nil {
		return nil, err
	}

	a.logger.Info().
		Int("policies", summary.Policies).
		Int("highRisk", summary.HighRiskPolicies).
		Str("metric", summary.PremiumLabel).
		Float64("value", summary.PremiumValue).
		Msg("results assembled")

	return &Output{
		Table:   out,
		Summary: summary,
		Preview: Preview(risks, prices, a.previewRows),
	}, nil
}

func (a *Assembler) summarize(t *table.Table, risks []models.RiskResult, prices []models.PricingResult) (models.Summary, error) {
	summary := models.Summary{Policies: len(risks)}

	for _, r := range risks {
		if r.ClaimProbability > HighRiskScore {
			summary.HighRiskPolicies++
		}
	}

	if !t.Has(CurrentPremiumColumn) {
		summary.PremiumLabel = LabelRecommendedPremium
		summary.PremiumValue = mean(len(prices), func(i int) (float64, bool) {
			return prices[i].RecommendedPremium, true
		})
		return summary, nil
	}

	current, err := t.Column(CurrentPremiumColumn)
	if err != nil {
		return summary, err
	}

	skipped := 0
	summary.PremiumLabel = LabelPremiumAdjustment
	summary.ComparedToCurrent = true
	summary.PremiumValue = mean(len(prices), func(i int) (float64, bool) {
		c, ok := table.ParseFloat(current[i])
		if !ok {
			skipped++
			return 0, false
		}
		return prices[i].RecommendedPremium - c, true
	})
	if skipped > 0 {
		a.logger.Warn().
			Int("skipped", skipped).
			Str("column", CurrentPremiumColumn).
			Msg("non-numeric current premiums excluded from adjustment")
	}

	return summary, nil
}

// mean averages the values that value reports as present. No values is 0.
func mean(n int, value func(i int) (float64, bool)) float64 {
	sum, count := 0.0, 0
	for i := 0; i < n; i++ {
		v, ok := value(i)
		if !ok {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func claimFlag(claim bool) string {
	if claim {
		return "1"
	}
	return "0"
}
