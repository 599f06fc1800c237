// Package openai provides a compute.Completer backed by OpenAI's chat
// completion API.
package openai

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Completer implements compute.Completer for OpenAI's API.
//
// The first argument blob is treated as the instruction (sent as the
// system message) and the rest as user inputs, in order. The completion
// text becomes the result blob.
//
// Example usage:
//
//	apiKey := os.Getenv("OPENAI_API_KEY")
//	c := openai.NewCompleter(apiKey, "")
//	fn := compute.FromCompleter(c)
type Completer struct {
	apiKey    string
	modelName string
	client    completionClient
}

// completionClient defines the interface for OpenAI API operations.
// This allows for easy mocking in tests.
type completionClient interface {
	createCompletion(ctx context.Context, instruction string, inputs [][]byte) ([]byte, error)
}

// NewCompleter creates a new OpenAI Completer.
//
// Parameters:
//   - apiKey: OpenAI API key
//   - modelName: Model to use (e.g. "gpt-4o"). Empty string uses the default.
func NewCompleter(apiKey, modelName string) *Completer {
	if modelName == "" {
		modelName = "gpt-4o"
	}
	return &Completer{
		apiKey:    apiKey,
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey, modelName: modelName},
	}
}

// Complete implements the compute.Completer interface.
func (c *Completer) Complete(ctx context.Context, args [][]byte) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(args) == 0 {
		return nil, errors.New("openai completer requires at least one argument blob")
	}
	return c.client.createCompletion(ctx, string(args[0]), args[1:])
}

// defaultClient wraps the official OpenAI SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createCompletion(ctx context.Context, instruction string, inputs [][]byte) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("openai API key is required")
	}

	client := openaisdk.NewClient(option.WithAPIKey(c.apiKey))

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(inputs)+1)
	if instruction != "" {
		messages = append(messages, openaisdk.SystemMessage(instruction))
	}
	for _, input := range inputs {
		messages = append(messages, openaisdk.UserMessage(string(input)))
	}
	if len(messages) == 0 {
		messages = append(messages, openaisdk.UserMessage(""))
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(c.modelName),
		Messages: messages,
	}

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("openai returned no choices")
	}
	return []byte(resp.Choices[0].Message.Content), nil
}
