package gpt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lhiwi/acis-insurance-project/internal/llm"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client adapts the OpenAI chat completions API to llm.Client. Retries are
// handled by the SDK.
type Client struct {
	Client  openai.Client
	ModelID string
}

func NewClient(apiKey string, model string, timeout time.Duration) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("OpenAI API key is required")
	}
	if model == "" {
		return nil, errors.New("OpenAI model ID is required")
	}

	return &Client{
		Client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(3),
			option.WithRequestTimeout(timeout),
		),
		ModelID: model,
	}, nil
}

func (c *Client) InvokeModel(ctx context.Context, request llm.Request) (*llm.Response, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if request.System != "" {
		messages = append(messages, openai.SystemMessage(request.System))
	}
	messages = append(messages, openai.UserMessage(request.Prompt))

	output, err := c.Client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(request.MaxTokens)),
		Temperature:         openai.Float(request.Temperature),
		Model:               openai.ChatModel(c.ModelID),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to invoke gpt model: %w", err)
	}

	if len(output.Choices) == 0 {
		return nil, errors.New("no choices in gpt response")
	}

	choice := output.Choices[0]
	return &llm.Response{
		Content:      choice.Message.Content,
		StopReason:   string(choice.FinishReason),
		InputTokens:  int(output.Usage.PromptTokens),
		OutputTokens: int(output.Usage.CompletionTokens),
	}, nil
}

func (c *Client) InvokeModelWithRetry(ctx context.Context, request llm.Request) (*llm.Response, error) {
	return c.InvokeModel(ctx, request)
}
