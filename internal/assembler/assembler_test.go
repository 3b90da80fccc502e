package assembler

import (
	"math"
	"reflect"
	"strconv"
	"testing"

	"github.com/lhiwi/acis-insurance-project/internal/loader"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.Nop()
	return &logger
}

func policies(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		[]string{"PostalCode", "Province", "CalculatedPremiumPerTerm"},
		[][]string{
			{"2000", "Gauteng", "100"},
			{"8000", "Western Cape, Cape Town", "250.5"},
			{"4001", `KwaZulu "KZN" Natal`, ""},
		},
	)
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func results() ([]models.RiskResult, []models.PricingResult) {
	risks := []models.RiskResult{
		{ClaimProbability: 0.75, NegativeClassProbability: 0.25, PredictedClaim: true, ExpectedSeverity: 1000},
		{ClaimProbability: 0.1234, NegativeClassProbability: 0.8766, PredictedClaim: false, ExpectedSeverity: 2500.125},
		{ClaimProbability: 0.9, NegativeClassProbability: 0.1, PredictedClaim: true, ExpectedSeverity: 0},
	}
	prices := []models.PricingResult{
		{RecommendedPremium: 300},
		{RecommendedPremium: 350.5},
		{RecommendedPremium: 0},
	}
	return risks, prices
}

func TestAssembler_Assemble(t *testing.T) {
	input := policies(t)
	risks, prices := results()

	out, err := NewAssembler(0, newTestLogger()).Assemble(input, risks, prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantColumns := []string{
		"PostalCode", "Province", "CalculatedPremiumPerTerm",
		"Risk_Score", "Predicted_Claim", "Expected_Severity", "Recommended_Premium",
	}
	if !reflect.DeepEqual(out.Table.Columns, wantColumns) {
		t.Errorf("columns = %v, want %v", out.Table.Columns, wantColumns)
	}
	if got := out.Table.Rows[1]; !reflect.DeepEqual(got[3:], []string{"0.1234", "0", "2500.125", "350.5"}) {
		t.Errorf("row 1 derived cells = %v", got[3:])
	}
	if input.NumColumns() != 3 || len(input.Rows[0]) != 3 {
		t.Errorf("input table was modified: %v", input.Columns)
	}

	s := out.Summary
	if s.Policies != 3 || s.HighRiskPolicies != 2 {
		t.Errorf("unexpected counts %+v", s)
	}
	// (300-100 + 350.5-250.5) / 2, row 3 has no current premium
	if s.PremiumLabel != LabelPremiumAdjustment || !s.ComparedToCurrent || s.PremiumValue != 150 {
		t.Errorf("unexpected premium metric %+v", s)
	}
	if len(out.Preview) != 3 {
		t.Errorf("expected 3 preview rows, got %d", len(out.Preview))
	}
}

func TestAssembler_Assemble_WithoutCurrentPremium(t *testing.T) {
	input, _ := table.New([]string{"PostalCode"}, [][]string{{"1"}, {"2"}})
	risks := []models.RiskResult{{ClaimProbability: 0.7}, {ClaimProbability: 0.71}}
	prices := []models.PricingResult{{RecommendedPremium: 100}, {RecommendedPremium: 300}}

	out, err := NewAssembler(20, newTestLogger()).Assemble(input, risks, prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Summary.PremiumLabel != LabelRecommendedPremium || out.Summary.ComparedToCurrent {
		t.Errorf("unexpected label %+v", out.Summary)
	}
	if out.Summary.PremiumValue != 200 {
		t.Errorf("mean premium = %v, want 200", out.Summary.PremiumValue)
	}
	if out.Summary.HighRiskPolicies != 1 {
		t.Errorf("0.7 is not high risk, got %d high-risk", out.Summary.HighRiskPolicies)
	}
}

func TestAssembler_Assemble_OverwritesExistingDerivedColumn(t *testing.T) {
	input, _ := table.New([]string{"Risk_Score", "a"}, [][]string{{"old", "x"}})

	out, err := NewAssembler(20, newTestLogger()).Assemble(input,
		[]models.RiskResult{{ClaimProbability: 0.5}},
		[]models.PricingResult{{RecommendedPremium: 1}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Risk_Score", "a", "Predicted_Claim", "Expected_Severity", "Recommended_Premium"}
	if !reflect.DeepEqual(out.Table.Columns, want) {
		t.Errorf("columns = %v, want %v", out.Table.Columns, want)
	}
	if out.Table.Rows[0][0] != "0.5" {
		t.Errorf("Risk_Score = %q, want 0.5", out.Table.Rows[0][0])
	}
}

func TestAssembler_Assemble_CountMismatch(t *testing.T) {
	risks, prices := results()

	_, err := NewAssembler(20, newTestLogger()).Assemble(policies(t), risks[:2], prices)
	if err == nil {
		t.Fatal("expected error for mismatched result count")
	}
}

func TestAssembler_CSVRoundTrip(t *testing.T) {
	input := policies(t)
	risks, prices := results()

	out, err := NewAssembler(20, newTestLogger()).Assemble(input, risks, prices)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := out.Table.EncodeCSV()
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	back, err := loader.NewLoader(newTestLogger()).Load(DownloadFilename, data)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}

	if !reflect.DeepEqual(back.Columns, out.Table.Columns) {
		t.Fatalf("columns = %v, want %v", back.Columns, out.Table.Columns)
	}
	for i := range input.Rows {
		if !reflect.DeepEqual(back.Rows[i][:3], input.Rows[i]) {
			t.Errorf("row %d original cells = %v, want %v", i, back.Rows[i][:3], input.Rows[i])
		}
		score, _ := strconv.ParseFloat(back.Rows[i][3], 64)
		claim := back.Rows[i][4]
		severity, _ := strconv.ParseFloat(back.Rows[i][5], 64)
		premium, _ := strconv.ParseFloat(back.Rows[i][6], 64)

		if math.Abs(score-risks[i].ClaimProbability) > 1e-12 ||
			math.Abs(severity-risks[i].ExpectedSeverity) > 1e-9 ||
			math.Abs(premium-prices[i].RecommendedPremium) > 1e-9 {
			t.Errorf("row %d derived values drifted: %v", i, back.Rows[i][3:])
		}
		if (claim == "1") != risks[i].PredictedClaim {
			t.Errorf("row %d Predicted_Claim = %q", i, claim)
		}
	}
}

func TestFormatting(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{name: "percent", got: FormatPercent(0.1234), want: "12.34%"},
		{name: "percent rounds", got: FormatPercent(0.99999), want: "100.00%"},
		{name: "currency thousands", got: FormatCurrency(1234.5), want: "$1,234.50"},
		{name: "currency millions", got: FormatCurrency(1234567.891), want: "$1,234,567.89"},
		{name: "currency small", got: FormatCurrency(7), want: "$7.00"},
		{name: "currency negative", got: FormatCurrency(-1500), want: "$-1,500.00"},
		{name: "currency half cent below", got: FormatCurrency(0.015), want: "$0.01"},
		{name: "currency no carry", got: FormatCurrency(999999.995), want: "$999,999.99"},
		{name: "currency beyond int64", got: FormatCurrency(1e20), want: "$100,000,000,000,000,000,000.00"},
		{name: "currency inf", got: FormatCurrency(math.Inf(1)), want: "$inf"},
		{name: "currency negative inf", got: FormatCurrency(math.Inf(-1)), want: "$-inf"},
		{name: "currency nan", got: FormatCurrency(math.NaN()), want: "$nan"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestPreview_Limit(t *testing.T) {
	risks := make([]models.RiskResult, 30)
	prices := make([]models.PricingResult, 30)
	risks[0] = models.RiskResult{ClaimProbability: 0.5, PredictedClaim: true, ExpectedSeverity: 1000}
	prices[0] = models.PricingResult{RecommendedPremium: 775}

	rows := Preview(risks, prices, DefaultPreviewRows)

	if len(rows) != 20 {
		t.Fatalf("expected 20 rows, got %d", len(rows))
	}
	want := models.PreviewRow{RiskScore: "50.00%", PredictedClaim: 1, ExpectedSeverity: "$1,000.00", RecommendedPremium: "$775.00"}
	if rows[0] != want {
		t.Errorf("row 0 = %+v, want %+v", rows[0], want)
	}
}
