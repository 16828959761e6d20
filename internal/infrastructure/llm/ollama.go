package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// OllamaChatter is the subset of the Ollama API client used here.
type OllamaChatter interface {
	Chat(ctx context.Context, req *ollama.ChatRequest, fn ollama.ChatResponseFunc) error
}

// OllamaClient runs evaluations against a local Ollama server.
type OllamaClient struct {
	api         OllamaChatter
	model       string
	temperature float64
	maxTokens   int
}

// NewOllamaClient connects to baseURL, or to OLLAMA_HOST when baseURL is empty.
func NewOllamaClient(baseURL, model string, temperature float64, maxTokens int) (*OllamaClient, error) {
	var api *ollama.Client
	if baseURL == "" {
		c, err := ollama.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("could not create ollama client: %w", err)
		}
		api = c
	} else {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama url %q: %w", baseURL, err)
		}
		api = ollama.NewClient(u, http.DefaultClient)
	}
	return NewOllamaClientWithAPI(api, model, temperature, maxTokens), nil
}

func NewOllamaClientWithAPI(api OllamaChatter, model string, temperature float64, maxTokens int) *OllamaClient {
	return &OllamaClient{
		api:         api,
		model:       strings.TrimPrefix(model, "ollama:"),
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

func (c *OllamaClient) Name() string { return "ollama:" + c.model }

func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &ollama.ChatRequest{
		Model:    c.model,
		Messages: []ollama.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Options: map[string]any{
			"temperature": c.temperature,
			"num_predict": c.maxTokens,
		},
	}

	var b strings.Builder
	err := c.api.Chat(ctx, req, func(res ollama.ChatResponse) error {
		b.WriteString(res.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat failed: %w", err)
	}
	return b.String(), nil
}
