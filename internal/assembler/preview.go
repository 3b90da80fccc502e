package assembler

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lhiwi/acis-insurance-project/internal/models"
)

// FormatPercent renders a probability as "12.34%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}

// FormatCurrency renders "$1,234.50", rounding the exact binary value to
// cents. Non-finite values render as "$inf", "$-inf" and "$nan".
func FormatCurrency(v float64) string {
	switch {
	case math.IsNaN(v):
		return "$nan"
	case math.IsInf(v, 1):
		return "$inf"
	case math.IsInf(v, -1):
		return "$-inf"
	}

	s := strconv.FormatFloat(v, 'f', 2, 64)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, cents, _ := strings.Cut(s, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	if !ok {
		return "$" + sign + s
	}
	return "$" + sign + humanize.BigComma(n) + "." + cents
}

// Preview formats the first n scored rows for display.
func Preview(risks []models.RiskResult, prices []models.PricingResult, n int) []models.PreviewRow {
	if n > len(risks) {
		n = len(risks)
	}
	rows := make([]models.PreviewRow, n)
	for i := 0; i < n; i++ {
		claim := 0
		if risks[i].PredictedClaim {
			claim = 1
		}
		rows[i] = models.PreviewRow{
			RiskScore:          FormatPercent(risks[i].ClaimProbability),
			PredictedClaim:     claim,
			ExpectedSeverity:   FormatCurrency(risks[i].ExpectedSeverity),
			RecommendedPremium: FormatCurrency(prices[i].RecommendedPremium),
		}
	}
	return rows
}

// FormatSummaryValue renders the premium metric the way the dashboard shows it.
func FormatSummaryValue(s models.Summary) string {
	return FormatCurrency(s.PremiumValue)
}
