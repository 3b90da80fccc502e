package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// JobScorer is satisfied by scoring.Service, which also caches the CSV for
// download.
type JobScorer interface {
	Score(ctx context.Context, req models.ScoringRequest) (*models.ScoringResult, error)
}

type Consumer struct {
	client       *redis.Client
	stream       string
	groupID      string
	consumerName string
	scorer       JobScorer
	defaults     models.ScoringOptions
	logger       *zerolog.Logger
}

func NewConsumer(
	client *redis.Client,
	stream string,
	groupID string,
	consumerName string,
	scorer JobScorer,
	defaults models.ScoringOptions,
	logger *zerolog.Logger,
) *Consumer {
	return &Consumer{
		client:       client,
		stream:       stream,
		groupID:      groupID,
		consumerName: consumerName,
		scorer:       scorer,
		defaults:     defaults,
		logger:       logger,
	}
}

func (c *Consumer) Setup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.groupID, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info().
		Str("stream", c.stream).
		Str("group", c.groupID).
		Str("consumer", c.consumerName).
		Msg("Consumer started")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		msgs, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupID,
			Consumer: c.consumerName,
			Streams:  []string{c.stream, ">"},
			Count:    1,
			Block:    2 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			c.logger.Error().Err(err).Msg("Failed to read from stream")
			continue
		}

		for _, msg := range msgs[0].Messages {
			c.process(ctx, msg)
		}
	}
}

func (c *Consumer) Stop() error {
	return c.client.Close()
}

// process acks every message, including ones that fail to decode or score;
// failed jobs are logged and not redelivered.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	c.logger.Info().Str("id", msg.ID).Msg("Message received")

	job, err := decodeJob(msg.Values)
	if err != nil {
		c.logger.Error().Err(err).Str("id", msg.ID).Msg("Failed to decode message")
		c.ack(ctx, msg.ID)
		return
	}

	result, err := c.score(ctx, job)
	if err != nil {
		c.logger.Error().Err(err).Str("id", msg.ID).Str("jobID", job.JobID).Msg("Scoring job failed")
		c.ack(ctx, msg.ID)
		return
	}

	c.logger.Info().
		Str("id", msg.ID).
		Str("runID", result.RunID).
		Int("policies", result.Summary.Policies).
		Int("highRisk", result.Summary.HighRiskPolicies).
		Msg("Scoring job complete")

	c.ack(ctx, msg.ID)
}

func (c *Consumer) score(ctx context.Context, job models.ScoringJob) (*models.ScoringResult, error) {
	req, err := job.Request(c.defaults)
	if err != nil {
		return nil, err
	}
	return c.scorer.Score(ctx, req)
}

// ack outlives the consumer context so messages in flight at shutdown are
// still acknowledged.
func (c *Consumer) ack(ctx context.Context, msgID string) {
	if err := c.client.XAck(context.WithoutCancel(ctx), c.stream, c.groupID, msgID).Err(); err != nil {
		c.logger.Error().Err(err).Str("id", msgID).Msg("Failed to ACK message")
	}
}

func decodeJob(values map[string]any) (models.ScoringJob, error) {
	var job models.ScoringJob

	payload, ok := values["payload"].(string)
	if !ok {
		return job, errors.New("missing payload field")
	}
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return job, fmt.Errorf("invalid job JSON: %w", err)
	}
	if err := job.Validate(); err != nil {
		return job, err
	}
	return job, nil
}
