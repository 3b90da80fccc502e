package llm

import (
	"context"
)

// Client invokes a text model. Implementations must be safe for concurrent
// use.
type Client interface {
	InvokeModel(ctx context.Context, request Request) (*Response, error)
	InvokeModelWithRetry(ctx context.Context, request Request) (*Response, error)
}
