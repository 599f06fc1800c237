// Package anthropic provides a compute.Completer backed by Anthropic's
// Claude API.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Completer implements compute.Completer for Anthropic's Claude API.
//
// The first argument blob is treated as the instruction and the rest as
// its inputs, mirroring the engine's function-then-arguments convention.
// The completion text becomes the result blob.
//
// External completions are not strictly deterministic; fleets using this
// completer should restrict MayCompute to a single site so only one
// result id is ever published per expression.
//
// Example usage:
//
//	apiKey := os.Getenv("ANTHROPIC_API_KEY")
//	c := anthropic.NewCompleter(apiKey, "")
//	fn := compute.FromCompleter(c)
type Completer struct {
	apiKey    string
	modelName string
	client    messageClient
}

// messageClient defines the interface for Anthropic API operations.
// This allows for easy mocking in tests.
type messageClient interface {
	createMessage(ctx context.Context, instruction string, inputs [][]byte) ([]byte, error)
}

// NewCompleter creates a new Anthropic Completer.
//
// Parameters:
//   - apiKey: Anthropic API key (get from https://console.anthropic.com/)
//   - modelName: Model to use. Empty string uses the default.
func NewCompleter(apiKey, modelName string) *Completer {
	if modelName == "" {
		modelName = "claude-sonnet-4-5-20250929"
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
		return nil, errors.New("anthropic completer requires at least one argument blob")
	}
	return c.client.createMessage(ctx, string(args[0]), args[1:])
}

// defaultClient wraps the official Anthropic SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) createMessage(ctx context.Context, instruction string, inputs [][]byte) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	client := anthropicsdk.NewClient(option.WithAPIKey(c.apiKey))

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelName),
		Messages:  buildMessages(inputs),
		MaxTokens: 4096,
	}
	if instruction != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: instruction}}
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic API error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return []byte(text), nil
}

// buildMessages turns the input blobs into one user message per blob,
// preserving order.
func buildMessages(inputs [][]byte) []anthropicsdk.MessageParam {
	if len(inputs) == 0 {
		// The API rejects empty conversations; send an empty input marker.
		return []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock("")),
		}
	}
	result := make([]anthropicsdk.MessageParam, len(inputs))
	for i, input := range inputs {
		result[i] = anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(string(input)))
	}
	return result
}
