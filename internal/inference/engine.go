package inference

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/artifacts"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/rs/zerolog"
)

type Stage string

const (
	StageTransform Stage = "transform"
	StageClassify  Stage = "classify"
	StageRegress   Stage = "regress"
)

// Error wraps any transformer or model failure. There is no retry.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("Prediction error (%s): %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Output struct {
	Features artifacts.Dense
	Results  []models.RiskResult
}

type Engine struct {
	bundle *artifacts.Bundle
	logger *zerolog.Logger
}

func NewEngine(bundle *artifacts.Bundle, logger *zerolog.Logger) *Engine {
	return &Engine{
		bundle: bundle,
		logger: logger,
	}
}

// Threshold is the claim-probability cut-off for a deployment mode.
func Threshold(mode models.DeploymentMode) float64 {
	if mode == models.ModeValidation {
		return 0.3
	}
	return 0.5
}

// Score transforms the table and runs both models. The negative-class
// probability is read from a second classifier call.
func (e *Engine) Score(t *table.Table, mode models.DeploymentMode) (out *Output, err error) {
	stage := StageTransform
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &Error{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	now := time.Now()
	n := t.NumRows()
	if n == 0 {
		return nil, &Error{Stage: StageTransform, Err: errors.New("no records to score")}
	}

	features, err := e.bundle.Transformer.Transform(t)
	if err != nil {
		return nil, &Error{Stage: StageTransform, Err: err}
	}
	rows, cols := features.Dims()
	if rows != n {
		return nil, &Error{Stage: StageTransform, Err: fmt.Errorf("transformer returned %d rows for %d records", rows, n)}
	}
	dense := features.ToDense()

	stage = StageClassify
	positive, err := e.predictProba(dense)
	if err != nil {
		return nil, err
	}
	negative, err := e.predictProba(dense)
	if err != nil {
		return nil, err
	}

	stage = StageRegress
	severity, err := e.bundle.Regressor.Predict(dense)
	if err != nil {
		return nil, &Error{Stage: StageRegress, Err: err}
	}
	if len(severity) != n {
		return nil, &Error{Stage: StageRegress, Err: fmt.Errorf("regressor returned %d values for %d records", len(severity), n)}
	}

	threshold := Threshold(mode)
	results := make([]models.RiskResult, n)
	claims := 0
	for i := range results {
		p := positive[i][1]
		results[i] = models.RiskResult{
			ClaimProbability:         p,
			NegativeClassProbability: negative[i][0],
			PredictedClaim:           p > threshold,
			ExpectedSeverity:         severity[i],
		}
		if results[i].PredictedClaim {
			claims++
		}
	}

	e.logger.Info().
		Int("records", n).
		Int("features", cols).
		Float64("threshold", threshold).
		Int("predictedClaims", claims).
		Dur("duration", time.Since(now)).
		Msg("inference complete")

	return &Output{Features: dense, Results: results}, nil
}

func (e *Engine) predictProba(x artifacts.Dense) ([][]float64, error) {
	probs, err := e.bundle.Classifier.PredictProba(x)
	if err != nil {
		return nil, &Error{Stage: StageClassify, Err: err}
	}
	if len(probs) != len(x) {
		return nil, &Error{Stage: StageClassify, Err: fmt.Errorf("classifier returned %d rows for %d records", len(probs), len(x))}
	}
	for i, row := range probs {
		if len(row) != 2 {
			return nil, &Error{Stage: StageClassify, Err: fmt.Errorf("row %d: expected 2 class probabilities, got %d", i, len(row))}
		}
	}
	return probs, nil
}

// FeatureNames uses the transformer's names when it has them and the
// width matches; otherwise Feature_0..Feature_{width-1}.
func (e *Engine) FeatureNames(width int) []string {
	if namer, ok := e.bundle.Transformer.(artifacts.FeatureNamer); ok {
		if names := namer.FeatureNamesOut(); len(names) == width {
			return names
		}
	}
	names := make([]string, width)
	for i := range names {
		names[i] = "Feature_" + strconv.Itoa(i)
	}
	return names
}
