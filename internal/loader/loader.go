package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/table"
	"github.com/rs/zerolog"
)

type Format string

const (
	FormatDelimited   Format = "delimited"
	FormatSpreadsheet Format = "spreadsheet"
	FormatJSON        Format = "json"
	FormatParquet     Format = "parquet"
)

// UnsupportedFormatError is returned for an extension with no parser.
type UnsupportedFormatError struct {
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("Unsupported file format: %s", e.Extension)
}

// LoadError means every parse attempt for a supported format failed.
type LoadError struct {
	Filename string
	Format   Format
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("Error reading file %s: %v", e.Filename, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

type parseFunc func(data []byte) (*table.Table, error)

type arm struct {
	format Format
	parse  parseFunc
}

type Loader struct {
	sniffer Sniffer
	arms    map[string]arm
	logger  *zerolog.Logger
}

// NewLoader builds a loader using the default heuristic delimiter sniffer.
func NewLoader(logger *zerolog.Logger) *Loader {
	return NewLoaderWithSniffer(HeuristicSniffer{}, logger)
}

func NewLoaderWithSniffer(sniffer Sniffer, logger *zerolog.Logger) *Loader {
	l := &Loader{
		sniffer: sniffer,
		logger:  logger,
	}

	l.arms = map[string]arm{
		".csv":     {FormatDelimited, l.loadDelimited},
		".txt":     {FormatDelimited, l.loadDelimited},
		".xlsx":    {FormatSpreadsheet, loadSpreadsheet},
		".xls":     {FormatSpreadsheet, loadSpreadsheet},
		".json":    {FormatJSON, loadJSON},
		".parquet": {FormatParquet, loadParquet},
	}

	return l
}

// SupportedExtensions lists accepted upload extensions without the dot.
func SupportedExtensions() []string {
	return []string{"csv", "txt", "xlsx", "xls", "json", "parquet"}
}

func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(strings.TrimSpace(filename)))
}

func (l *Loader) Load(filename string, data []byte) (*table.Table, error) {
	ext := Extension(filename)

	a, ok := l.arms[ext]
	if !ok {
		return nil, &UnsupportedFormatError{Extension: ext}
	}

	now := time.Now()
	t, err := a.parse(data)
	if err != nil {
		l.logger.Error().
			Err(err).
			Str("file", filename).
			Str("format", string(a.format)).
			Msg("failed to load file")
		return nil, &LoadError{Filename: filename, Format: a.format, Err: err}
	}

	l.logger.Info().
		Str("file", filename).
		Str("format", string(a.format)).
		Int("rows", t.NumRows()).
		Int("columns", t.NumColumns()).
		Dur("duration", time.Since(now)).
		Msg("file loaded")

	return t, nil
}
