package store

import (
	"context"
	"errors"
	"time"
)

const DefaultTTL = time.Hour

var ErrNotFound = errors.New("result not found or expired")

// ResultStore keeps the scored CSV of a run until it expires so it can be
// downloaded after the scoring response was sent.
type ResultStore interface {
	Put(ctx context.Context, runID string, csv []byte) error
	Get(ctx context.Context, runID string) ([]byte, error)
}
