package pricing

import "github.com/lhiwi/acis-insurance-project/internal/models"

const (
	baseLoading     = 1.2
	highRiskCutoff  = 0.4
	highRiskLoad    = 0.35
	defaultRiskLoad = 0.15
	neutralNegative = 0.5
)

// ModeMultiplier is the environment surcharge applied last.
func ModeMultiplier(mode models.DeploymentMode) float64 {
	switch mode {
	case models.ModeProduction:
		return 1.3
	case models.ModeStaging:
		return 1.1
	}
	return 1.0
}

// RiskLoad is the loading added to the base multiplier.
func RiskLoad(claimProbability float64) float64 {
	if claimProbability > highRiskCutoff {
		return highRiskLoad
	}
	return defaultRiskLoad
}

// Price is the heuristic premium. There is no floor or cap.
func Price(claimProbability, expectedSeverity, negativeClassProbability float64, mode models.DeploymentMode) float64 {
	base := claimProbability * expectedSeverity
	uncertainty := 1 + (neutralNegative - negativeClassProbability)

	premium := base * (baseLoading + RiskLoad(claimProbability)) * uncertainty

	switch mode {
	case models.ModeProduction, models.ModeStaging:
		premium *= ModeMultiplier(mode)
	}
	return premium
}

// PriceAll prices each risk result in order.
func PriceAll(risks []models.RiskResult, mode models.DeploymentMode) []models.PricingResult {
	out := make([]models.PricingResult, len(risks))
	for i, r := range risks {
		out[i] = models.PricingResult{
			RecommendedPremium: Price(r.ClaimProbability, r.ExpectedSeverity, r.NegativeClassProbability, mode),
		}
	}
	return out
}
