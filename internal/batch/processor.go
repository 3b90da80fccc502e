package batch

import (
	"context"
	"sync"

	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/rs/zerolog"
)

type Scorer interface {
	Score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error)
}

type Outcome struct {
	ID     string
	Source string
	Result *models.ScoringResult
	Err    error
}

type Processor struct {
	scorer   Scorer
	workers  int
	defaults models.ScoringOptions
	logger   *zerolog.Logger
}

func NewProcessor(scorer Scorer, workers int, defaults models.ScoringOptions, logger *zerolog.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		scorer:   scorer,
		workers:  workers,
		defaults: defaults,
		logger:   logger,
	}
}

// Process scores records on a pool of workers. Outcomes arrive in completion
// order; the channel is closed when all workers are done or ctx is cancelled.
func (p *Processor) Process(ctx context.Context, records []InputRecord) <-chan Outcome {
	jobs := make(chan InputRecord)
	out := make(chan Outcome)

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				outcome := p.run(ctx, record)
				select {
				case out <- outcome:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, record := range records {
			select {
			case jobs <- record:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}

func (p *Processor) run(ctx context.Context, record InputRecord) Outcome {
	outcome := Outcome{ID: record.Job.JobID, Source: record.Job.Path}
	if outcome.Source == "" {
		outcome.Source = record.Job.Filename
	}

	if record.Error != nil {
		outcome.Err = record.Error
		return outcome
	}

	req, err := record.Job.Request(p.defaults)
	if err != nil {
		outcome.Err = err
		return outcome
	}

	result, err := p.scorer.Score(ctx, req)
	if err != nil {
		p.logger.Warn().Err(err).Str("jobID", outcome.ID).Msg("Job failed")
		outcome.Err = err
		return outcome
	}

	outcome.Result = result
	return outcome
}
