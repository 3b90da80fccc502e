package explain

import (
	"fmt"
	"math"
	"sort"

	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/rs/zerolog"
)

const DefaultTopN = 10

// Attributor splits one feature row into signed per-feature contributions
// and a baseline expected value.
type Attributor interface {
	Attribute(row []float64) ([]float64, float64, error)
}

// LinearExplainer attributes in log-odds space for classifiers that
// implement Attributor.
type LinearExplainer struct {
	attributor Attributor
	topN       int
	logger     *zerolog.Logger
}

func NewLinearExplainer(classifier artifacts.Classifier, topN int, logger *zerolog.Logger) (*LinearExplainer, error) {
	attributor, ok := classifier.(Attributor)
	if !ok {
		return nil, fmt.Errorf("classifier %T does not support attributions", classifier)
	}
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &LinearExplainer{
		attributor: attributor,
		topN:       topN,
		logger:     logger,
	}, nil
}

// Explain attributes record index of features. names must match the
// feature width.
func (e *LinearExplainer) Explain(features artifacts.Dense, index int, names []string) (*models.Explanation, error) {
	if index < 0 || index >= len(features) {
		return nil, fmt.Errorf("record %d out of range for %d records", index, len(features))
	}
	row := features[index]
	if len(names) != len(row) {
		return nil, fmt.Errorf("%d feature names for %d features", len(names), len(row))
	}

	impacts, expected, err := e.attributor.Attribute(row)
	if err != nil {
		return nil, fmt.Errorf("attribution failed: %w", err)
	}

	byName := make(map[string]float64, len(names))
	for i, name := range names {
		byName[name] = impacts[i]
	}

	top := TopContributors(names, impacts, e.topN)

	e.logger.Debug().
		Int("record", index).
		Float64("expectedValue", expected).
		Int("features", len(names)).
		Msg("explanation computed")

	return &models.Explanation{
		RecordIndex:   index,
		ExpectedValue: expected,
		Impacts:       byName,
		Top:           top,
	}, nil
}

// TopContributors returns the n features with the largest absolute impact,
// largest first. Ties keep feature order.
func TopContributors(names []string, impacts []float64, n int) []models.Contribution {
	all := make([]models.Contribution, len(names))
	for i := range names {
		all[i] = models.Contribution{Feature: names[i], Impact: impacts[i]}
	}
	sort.SliceStable(all, func(i, j int) bool {
		return math.Abs(all[i].Impact) > math.Abs(all[j].Impact)
	})
	if n < len(all) {
		all = all[:n]
	}
	return all
}
