package batch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/lhiwi/acis-insurance-project/internal/assembler"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/rs/zerolog"
)

const (
	FormatJSONL   = "jsonl"
	FormatSummary = "summary"
)

type outcomeLine struct {
	JobID    string          `json:"job_id"`
	Source   string          `json:"source"`
	RunID    string          `json:"run_id,omitempty"`
	Summary  *models.Summary `json:"summary,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
	Output   string          `json:"output,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Writer reports outcomes and, when outDir is set, writes each scored CSV
// as <outDir>/<job_id>.csv.
type Writer struct {
	w      *bufio.Writer
	format string
	outDir string
	logger *zerolog.Logger
}

func NewWriter(w io.Writer, format string, outDir string, logger *zerolog.Logger) (*Writer, error) {
	switch format {
	case FormatJSONL, FormatSummary:
	default:
		return nil, fmt.Errorf("unsupported output format %q (expected jsonl or summary)", format)
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	return &Writer{
		w:      bufio.NewWriter(w),
		format: format,
		outDir: outDir,
		logger: logger,
	}, nil
}

func (w *Writer) Write(o Outcome) error {
	line := outcomeLine{JobID: o.ID, Source: o.Source}

	if o.Err != nil {
		line.Error = o.Err.Error()
	} else {
		line.RunID = o.Result.RunID
		line.Summary = &o.Result.Summary
		line.Warnings = o.Result.Warnings

		if w.outDir != "" {
			path := filepath.Join(w.outDir, safeName(o.ID)+".csv")
			if err := os.WriteFile(path, o.Result.CSV, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			line.Output = path
		}
	}

	if w.format == FormatSummary {
		return w.writeSummary(line, o)
	}

	data, err := json.Marshal(line)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func (w *Writer) writeSummary(line outcomeLine, o Outcome) error {
	var err error
	if line.Error != "" {
		_, err = fmt.Fprintf(w.w, "%s\tFAILED\t%s\n", line.JobID, line.Error)
	} else {
		s := o.Result.Summary
		_, err = fmt.Fprintf(w.w, "%s\t%d policies\t%d high-risk\t%s: %s\n",
			line.JobID, s.Policies, s.HighRiskPolicies, s.PremiumLabel, assembler.FormatSummaryValue(s))
	}
	return err
}

func (w *Writer) Close() error {
	return w.w.Flush()
}

func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', ' ':
			return '_'
		}
		return r
	}, id)
}
