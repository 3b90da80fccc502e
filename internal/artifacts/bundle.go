package artifacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Files names the three artifacts inside the model directory.
type Files struct {
	Classifier  string `yaml:"classifier"`
	Regressor   string `yaml:"regressor"`
	Transformer string `yaml:"transformer"`
}

var DefaultFiles = Files{
	Classifier:  "claim_occurrence_model.json",
	Regressor:   "claim_severity_model.json",
	Transformer: "preprocessor.json",
}

// MissingError lists every artifact path that does not exist.
type MissingError struct {
	Paths []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("Model file not found: %s", strings.Join(e.Paths, ", "))
}

type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Error loading models: %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Bundle holds the loaded models. It is built once and only read afterwards.
type Bundle struct {
	Classifier  Classifier
	Regressor   Regressor
	Transformer Transformer
}

func NewBundle(classifier Classifier, regressor Regressor, transformer Transformer) *Bundle {
	return &Bundle{
		Classifier:  classifier,
		Regressor:   regressor,
		Transformer: transformer,
	}
}

type widther interface {
	Width() int
}

// Load checks that all three files exist before decoding any of them.
func Load(dir string, files Files, logger *zerolog.Logger) (*Bundle, error) {
	paths := []string{
		filepath.Join(dir, files.Classifier),
		filepath.Join(dir, files.Regressor),
		filepath.Join(dir, files.Transformer),
	}

	var missing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				missing = append(missing, p)
				continue
			}
			return nil, &LoadError{Path: p, Err: err}
		}
	}
	if len(missing) > 0 {
		logger.Error().Strs("paths", missing).Msg("model artifacts missing")
		return nil, &MissingError{Paths: missing}
	}

	var classifier LogisticModel
	if err := decodeArtifact(paths[0], &classifier, classifier.validate); err != nil {
		return nil, err
	}
	var regressor LinearModel
	if err := decodeArtifact(paths[1], &regressor, regressor.validate); err != nil {
		return nil, err
	}
	var transformer ColumnTransformer
	if err := decodeArtifact(paths[2], &transformer, transformer.validate); err != nil {
		return nil, err
	}

	width := transformer.Width()
	for i, m := range []widther{&classifier, &regressor} {
		if m.Width() != width {
			return nil, &LoadError{
				Path: paths[i],
				Err:  fmt.Errorf("model expects %d features, transformer produces %d", m.Width(), width),
			}
		}
	}

	logger.Info().
		Str("dir", dir).
		Int("features", width).
		Str("link", regressor.Link).
		Bool("sparse", transformer.SparseOutput).
		Msg("model artifacts loaded")

	return NewBundle(&classifier, &regressor, &transformer), nil
}

func decodeArtifact(path string, v any, validate func() error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &LoadError{Path: path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &LoadError{Path: path, Err: err}
	}
	if err := validate(); err != nil {
		return &LoadError{Path: path, Err: err}
	}
	return nil
}
