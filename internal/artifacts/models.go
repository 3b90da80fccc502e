package artifacts

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/lhiwi/acis-insurance-project/internal/table"
)

type Classifier interface {
	// PredictProba returns one [negative, positive] pair per row.
	PredictProba(x Dense) ([][]float64, error)
}

type Regressor interface {
	Predict(x Dense) ([]float64, error)
}

type Transformer interface {
	Transform(t *table.Table) (Features, error)
}

// FeatureNamer is implemented by transformers that know their output names.
type FeatureNamer interface {
	FeatureNamesOut() []string
}

const (
	TypeLogistic          = "logistic"
	TypeLinear            = "linear"
	TypeColumnTransformer = "column_transformer"

	LinkIdentity = "identity"
	LinkLog      = "log"
)

// LogisticModel is a binary logistic regression over the transformed
// features. FeatureMeans is the training-set mean of each feature and is the
// baseline for attributions.
type LogisticModel struct {
	Type         string    `json:"type"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	FeatureMeans []float64 `json:"feature_means"`
}

func (m *LogisticModel) validate() error {
	if m.Type != TypeLogistic {
		return fmt.Errorf("expected model type %q, got %q", TypeLogistic, m.Type)
	}
	if len(m.Coefficients) == 0 {
		return errors.New("logistic model has no coefficients")
	}
	if len(m.FeatureMeans) == 0 {
		m.FeatureMeans = make([]float64, len(m.Coefficients))
	}
	if len(m.FeatureMeans) != len(m.Coefficients) {
		return fmt.Errorf("feature_means has %d entries for %d coefficients", len(m.FeatureMeans), len(m.Coefficients))
	}
	return nil
}

func (m *LogisticModel) Width() int {
	return len(m.Coefficients)
}

func (m *LogisticModel) logit(row []float64) (float64, error) {
	if len(row) != len(m.Coefficients) {
		return 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(row))
	}
	z := m.Intercept
	for i, w := range m.Coefficients {
		z += w * row[i]
	}
	return z, nil
}

func (m *LogisticModel) PredictProba(x Dense) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		z, err := m.logit(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		p := sigmoid(z)
		out[i] = []float64{1 - p, p}
	}
	return out, nil
}

// Attribute splits the log-odds of row into per-feature contributions
// w_i*(x_i - mean_i). The contributions plus the returned expected value
// sum to the row's logit.
func (m *LogisticModel) Attribute(row []float64) ([]float64, float64, error) {
	if len(row) != len(m.Coefficients) {
		return nil, 0, fmt.Errorf("expected %d features, got %d", len(m.Coefficients), len(row))
	}
	impacts := make([]float64, len(row))
	expected := m.Intercept
	for i, w := range m.Coefficients {
		impacts[i] = w * (row[i] - m.FeatureMeans[i])
		expected += w * m.FeatureMeans[i]
	}
	return impacts, expected, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// LinearModel is a generalized linear regressor. The log link
// exponentiates the linear predictor so output is never negative.
type LinearModel struct {
	Type         string    `json:"type"`
	Link         string    `json:"link"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

func (m *LinearModel) validate() error {
	if m.Type != TypeLinear {
		return fmt.Errorf("expected model type %q, got %q", TypeLinear, m.Type)
	}
	if m.Link == "" {
		m.Link = LinkIdentity
	}
	if m.Link != LinkIdentity && m.Link != LinkLog {
		return fmt.Errorf("unknown link %q", m.Link)
	}
	if len(m.Coefficients) == 0 {
		return errors.New("linear model has no coefficients")
	}
	return nil
}

func (m *LinearModel) Width() int {
	return len(m.Coefficients)
}

func (m *LinearModel) Predict(x Dense) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(m.Coefficients) {
			return nil, fmt.Errorf("row %d: expected %d features, got %d", i, len(m.Coefficients), len(row))
		}
		y := m.Intercept
		for j, w := range m.Coefficients {
			y += w * row[j]
		}
		if m.Link == LinkLog {
			y = math.Exp(y)
		}
		out[i] = y
	}
	return out, nil
}

type NumericFeature struct {
	Column string  `json:"column"`
	Mean   float64 `json:"mean"`
	Scale  float64 `json:"scale"`
}

type CategoricalFeature struct {
	Column     string   `json:"column"`
	Categories []string `json:"categories"`
}

// ColumnTransformer standardizes numeric columns and one-hot encodes
// categorical ones. Output order: all numeric features, then each
// categorical block.
type ColumnTransformer struct {
	Type         string               `json:"type"`
	Numeric      []NumericFeature     `json:"numeric"`
	Categorical  []CategoricalFeature `json:"categorical"`
	SparseOutput bool                 `json:"sparse_output"`
}

func (c *ColumnTransformer) validate() error {
	if c.Type != TypeColumnTransformer {
		return fmt.Errorf("expected transformer type %q, got %q", TypeColumnTransformer, c.Type)
	}
	if c.Width() == 0 {
		return errors.New("transformer produces no features")
	}
	for i := range c.Numeric {
		if c.Numeric[i].Column == "" {
			return fmt.Errorf("numeric feature %d has no column", i)
		}
		if c.Numeric[i].Scale == 0 {
			c.Numeric[i].Scale = 1
		}
	}
	for i, cat := range c.Categorical {
		if cat.Column == "" {
			return fmt.Errorf("categorical feature %d has no column", i)
		}
	}
	return nil
}

func (c *ColumnTransformer) Width() int {
	n := len(c.Numeric)
	for _, cat := range c.Categorical {
		n += len(cat.Categories)
	}
	return n
}

func (c *ColumnTransformer) FeatureNamesOut() []string {
	names := make([]string, 0, c.Width())
	for _, num := range c.Numeric {
		names = append(names, "num__"+num.Column)
	}
	for _, cat := range c.Categorical {
		for _, v := range cat.Categories {
			names = append(names, "cat__"+cat.Column+"_"+v)
		}
	}
	return names
}

// Transform fails when an input column is absent. Unparseable numeric cells
// take the column mean; unknown categories encode as all zeros.
func (c *ColumnTransformer) Transform(t *table.Table) (Features, error) {
	width := c.Width()
	out := make(Dense, t.NumRows())
	for i := range out {
		out[i] = make([]float64, width)
	}

	offset := 0
	for _, num := range c.Numeric {
		values, err := t.Column(num.Column)
		if err != nil {
			return nil, err
		}
		for i, cell := range values {
			v, ok := table.ParseFloat(cell)
			if !ok {
				v = num.Mean
			}
			out[i][offset] = (v - num.Mean) / num.Scale
		}
		offset++
	}

	for _, cat := range c.Categorical {
		values, err := t.Column(cat.Column)
		if err != nil {
			return nil, err
		}
		index := make(map[string]int, len(cat.Categories))
		for k, v := range cat.Categories {
			index[v] = k
		}
		for i, cell := range values {
			if k, ok := index[strings.TrimSpace(cell)]; ok {
				out[i][offset+k] = 1
			}
		}
		offset += len(cat.Categories)
	}

	if c.SparseOutput {
		return NewCSR(out, width)
	}
	return out, nil
}
