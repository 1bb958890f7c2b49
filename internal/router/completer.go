package router

import (
	"context"

	"github.com/sells-group/retail-analytics/pkg/anthropic"
	"github.com/sells-group/retail-analytics/pkg/ollama"
)

// OllamaCompleter adapts a local Ollama client to the Completer surface.
type OllamaCompleter struct {
	Client ollama.Client
	Model  string
}

func (c OllamaCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Client.Generate(ctx, ollama.GenerateRequest{
		Model:  c.Model,
		Prompt: prompt,
	})
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

// AnthropicCompleter adapts the Anthropic client to the Completer surface.
type AnthropicCompleter struct {
	Client anthropic.Client
	Model  string
}

func (c AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     c.Model,
		MaxTokens: 16,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
