package schema

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/rs/zerolog"
)

// RequiredColumns is the input contract of the models, in reporting order.
var RequiredColumns = []string{
	"TransactionMonth",
	"PostalCode",
	"RegistrationYear",
	"VehicleType",
	"SumInsured",
	"CalculatedPremiumPerTerm",
	"Province",
	"make",
	"Model",
}

const DefaultRowCap = 5000

type MissingColumnsError struct {
	Missing   []string
	Available []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("Missing required columns: %s. Available columns: %s",
		strings.Join(e.Missing, ", "), strings.Join(e.Available, ", "))
}

type Result struct {
	Table        *table.Table
	Warnings     []string
	OriginalRows int
	Truncated    bool
}

type Validator struct {
	required []string
	rowCap   int
	logger   *zerolog.Logger
}

func NewValidator(rowCap int, logger *zerolog.Logger) *Validator {
	if rowCap <= 0 {
		rowCap = DefaultRowCap
	}
	return &Validator{
		required: RequiredColumns,
		rowCap:   rowCap,
		logger:   logger,
	}
}

// NormalizeLabel trims a column label and removes internal spaces.
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(strings.TrimSpace(label), " ", "")
}

func NormalizeColumns(columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = NormalizeLabel(c)
	}
	return out
}

// Validate normalizes labels, enforces the required columns and, with
// safeguards on, caps the row count. The input table is left untouched.
func (v *Validator) Validate(t *table.Table, safeguards bool) (*Result, error) {
	normalized := t.WithColumns(NormalizeColumns(t.Columns))

	var missing []string
	for _, col := range v.required {
		if !normalized.Has(col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		v.logger.Warn().
			Strs("missing", missing).
			Int("available", normalized.NumColumns()).
			Msg("required columns missing")
		return nil, &MissingColumnsError{
			Missing:   missing,
			Available: append([]string(nil), normalized.Columns...),
		}
	}

	result := &Result{
		Table:        normalized,
		OriginalRows: normalized.NumRows(),
	}

	if safeguards && normalized.NumRows() > v.rowCap {
		result.Table = normalized.Head(v.rowCap)
		result.Truncated = true
		result.Warnings = append(result.Warnings, fmt.Sprintf(
			"Large dataset detected (%s records). Sampling first %s records.",
			humanize.Comma(int64(result.OriginalRows)), humanize.Comma(int64(v.rowCap))))

		v.logger.Warn().
			Int("rows", result.OriginalRows).
			Int("cap", v.rowCap).
			Msg("row cap applied")
	}

	v.logger.Debug().
		Int("rows", result.Table.NumRows()).
		Int("columns", result.Table.NumColumns()).
		Msg("schema validated")

	return result, nil
}
