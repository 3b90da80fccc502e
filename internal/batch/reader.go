package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/rs/zerolog"
)

// InputRecord is one line of a JSONL job manifest.
type InputRecord struct {
	LineNumber int
	Job        models.ScoringJob
	Error      error
}

type Reader struct {
	r      io.Reader
	logger *zerolog.Logger
}

func NewReader(r io.Reader, logger *zerolog.Logger) *Reader {
	return &Reader{
		r:      r,
		logger: logger,
	}
}

// ReadAll streams manifest records. Blank lines are skipped; malformed lines
// are delivered with Error set. A job without job_id gets "line-<n>".
func (r *Reader) ReadAll(ctx context.Context) <-chan InputRecord {
	out := make(chan InputRecord)

	go func() {
		defer close(out)

		scanner := bufio.NewScanner(r.r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			record := InputRecord{LineNumber: line}
			if err := json.Unmarshal([]byte(text), &record.Job); err != nil {
				record.Error = fmt.Errorf("line %d: %w", line, err)
			} else if err := record.Job.Validate(); err != nil {
				record.Error = fmt.Errorf("line %d: %w", line, err)
			}
			if record.Job.JobID == "" {
				record.Job.JobID = fmt.Sprintf("line-%d", line)
			}

			select {
			case out <- record:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil {
			r.logger.Error().Err(err).Int("line", line).Msg("Failed to read manifest")
		}
	}()

	return out
}
