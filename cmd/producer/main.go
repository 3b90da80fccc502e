package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lhiwi/acis-insurance-project/internal/models"
	red "github.com/lhiwi/acis-insurance-project/internal/redis"
	"github.com/lhiwi/acis-insurance-project/internal/stream"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	file := flag.String("file", "", "Policy file to score")
	inline := flag.Bool("inline", false, "Send the file contents in the message instead of its path")
	mode := flag.String("mode", "", "Deployment mode (Validation, Staging, Production)")
	streamName := flag.String("stream", stream.DefaultStream, "Stream name")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "Usage: producer -file policies.csv [-inline] [-mode Staging]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := run(*file, *inline, *mode, *streamName); err != nil {
		log.Error().Err(err).Msg("producer failed")
		os.Exit(1)
	}
}

func run(file string, inline bool, mode string, streamName string) error {
	_ = godotenv.Load()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	job := models.ScoringJob{
		JobID:    uuid.NewString(),
		Filename: filepath.Base(file),
		Mode:     mode,
	}
	if inline {
		data, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		job.Payload = data
	} else {
		abs, err := filepath.Abs(file)
		if err != nil {
			return err
		}
		job.Path = abs
	}
	if err := job.Validate(); err != nil {
		return err
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := red.Connect(ctx, addr, os.Getenv("REDIS_PASSWORD"), 3, &log.Logger)
	if err != nil {
		return err
	}
	defer client.Close()

	id, err := client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]any{"payload": string(payload)},
	}).Result()
	if err != nil {
		return err
	}

	log.Info().Str("stream", streamName).Str("id", id).Str("jobID", job.JobID).Msg("Published successfully!")
	return nil
}
