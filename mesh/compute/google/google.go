// Package google provides a compute.Completer backed by Google's Gemini
// API.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Completer implements compute.Completer for Google's Gemini API.
//
// The first argument blob is treated as the instruction and the rest as
// inputs; all are sent as ordered text parts of one generation request.
// The generated text becomes the result blob.
//
// Example usage:
//
//	apiKey := os.Getenv("GOOGLE_API_KEY")
//	c := google.NewCompleter(apiKey, "")
//	fn := compute.FromCompleter(c)
type Completer struct {
	apiKey    string
	modelName string
	client    generateClient
}

// generateClient defines the interface for Gemini API operations.
// This allows for easy mocking in tests.
type generateClient interface {
	generate(ctx context.Context, instruction string, inputs [][]byte) ([]byte, error)
}

// NewCompleter creates a new Gemini Completer.
//
// Parameters:
//   - apiKey: Google AI API key
//   - modelName: Model to use (e.g. "gemini-1.5-pro"). Empty string uses
//     the default.
func NewCompleter(apiKey, modelName string) *Completer {
	if modelName == "" {
		modelName = "gemini-1.5-pro"
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
		return nil, errors.New("google completer requires at least one argument blob")
	}
	return c.client.generate(ctx, string(args[0]), args[1:])
}

// defaultClient wraps the official Gemini SDK client.
type defaultClient struct {
	apiKey    string
	modelName string
}

func (c *defaultClient) generate(ctx context.Context, instruction string, inputs [][]byte) ([]byte, error) {
	if c.apiKey == "" {
		return nil, errors.New("google API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(c.modelName)

	parts := make([]genai.Part, 0, len(inputs)+1)
	if instruction != "" {
		parts = append(parts, genai.Text(instruction))
	}
	for _, input := range inputs {
		parts = append(parts, genai.Text(string(input)))
	}
	if len(parts) == 0 {
		parts = append(parts, genai.Text(""))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini returned no candidates")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}
	return []byte(text), nil
}
