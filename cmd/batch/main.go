package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lhiwi/acis-insurance-project/internal/assembler"
	"github.com/lhiwi/acis-insurance-project/internal/batch"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/lhiwi/acis-insurance-project/internal/setup"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	startTime := time.Now()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg := setup.LoadConfig()

	input := flag.String("input", "", "Policy file, .jsonl job manifest, or '-' for stdin")
	name := flag.String("name", "stdin.csv", "File name used to pick the parser when reading stdin")
	output := flag.String("output", "", "Scored CSV path (single file) or output directory (manifest); default stdout")
	mode := flag.String("mode", cfg.DeploymentMode, "Deployment mode: Validation, Staging or Production")
	safeguards := flag.Bool("safeguards", cfg.Safeguards, "Sample the first records of large files")
	explain := flag.Bool("explain", cfg.ShowExplanations, "Log top risk contributors for the first record")
	format := flag.String("format", batch.FormatJSONL, "Manifest report format: 'jsonl' or 'summary'")
	workers := flag.Int("workers", 4, "Concurrent scoring workers for manifests")

	flag.Parse()

	if *input == "" {
		log.Fatal().Msg("required flag -input not provided")
	}

	cfg.DeploymentMode = *mode
	cfg.Safeguards = *safeguards
	cfg.ShowExplanations = *explain

	ctx, cancel := setupGracefulShutdown()
	defer cancel()

	deps, err := setup.Wire(ctx, cfg, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer deps.Close()

	if strings.EqualFold(filepath.Ext(*input), ".jsonl") {
		runManifest(ctx, deps, *input, *output, *format, *workers)
	} else {
		runSingle(ctx, deps, *input, *name, *output)
	}

	log.Info().Dur("duration", time.Since(startTime)).Msg("Batch processing complete")
}

func runSingle(ctx context.Context, deps *setup.Dependencies, input string, stdinName string, output string) {
	var (
		data     []byte
		filename string
		err      error
	)
	if input == "-" {
		log.Info().Str("name", stdinName).Msg("Reading from stdin")
		data, err = io.ReadAll(os.Stdin)
		filename = stdinName
	} else {
		log.Info().Str("file", input).Msg("Reading input file")
		data, err = os.ReadFile(input)
		filename = filepath.Base(input)
	}
	if err != nil {
		log.Fatal().Err(err).Str("file", input).Msg("Failed to read input")
	}

	result, err := deps.Service.Score(ctx, models.ScoringRequest{
		Filename: filename,
		Data:     data,
		Options:  deps.Defaults,
	})
	if err != nil {
		log.Fatal().Err(err).Str("file", filename).Msg("Scoring failed")
	}

	if output == "" {
		if _, err := os.Stdout.Write(result.CSV); err != nil {
			log.Fatal().Err(err).Msg("Failed to write results")
		}
	} else {
		if err := os.WriteFile(output, result.CSV, 0644); err != nil {
			log.Fatal().Err(err).Str("file", output).Msg("Failed to write results")
		}
		log.Info().Str("file", output).Msg("Scored CSV written")
	}

	for _, w := range result.Warnings {
		log.Warn().Msg(w)
	}

	log.Info().
		Str("runID", result.RunID).
		Int("policies", result.Summary.Policies).
		Int("highRisk", result.Summary.HighRiskPolicies).
		Str("metric", result.Summary.PremiumLabel).
		Str("value", assembler.FormatSummaryValue(result.Summary)).
		Msg("Scoring summary")

	if result.Explanation != nil {
		for _, c := range result.Explanation.Top {
			log.Info().Str("feature", c.Feature).Float64("impact", c.Impact).Msg("Top risk contributor")
		}
	}
	if result.Note != "" {
		log.Info().Str("note", result.Note).Msg("Underwriter note")
	}
}

func runManifest(ctx context.Context, deps *setup.Dependencies, input string, outDir string, format string, workers int) {
	f, err := os.Open(input)
	if err != nil {
		log.Fatal().Err(err).Str("file", input).Msg("Failed to open manifest")
	}
	defer f.Close()

	var records []batch.InputRecord
	for record := range batch.NewReader(f, deps.Logger).ReadAll(ctx) {
		records = append(records, record)
	}
	log.Info().Int("total", len(records)).Msg("Manifest parsed")

	writer, err := batch.NewWriter(os.Stdout, format, outDir, deps.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create writer")
	}
	defer writer.Close()

	processor := batch.NewProcessor(deps.Service, workers, deps.Defaults, deps.Logger)

	successCount := 0
	errorCount := 0
	for outcome := range processor.Process(ctx, records) {
		if outcome.Err != nil {
			errorCount++
		} else {
			successCount++
		}
		if err := writer.Write(outcome); err != nil {
			log.Error().Err(err).Str("id", outcome.ID).Msg("Failed to write result")
		}
	}

	log.Info().
		Int("success", successCount).
		Int("errors", errorCount).
		Msg("Processing complete")
}

func setupGracefulShutdown() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Warn().Msg("Received interrupt signal, finishing current work...")
		cancel()
	}()

	return ctx, cancel
}
