package llm_test

import (
	"context"
	"errors"
	"testing"

	ollama "github.com/ollama/ollama/api"
	"github.com/stretchr/testify/require"

	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/llm"
)

type fakeChatter struct {
	req    *ollama.ChatRequest
	chunks []string
	err    error
}

func (f *fakeChatter) Chat(_ context.Context, req *ollama.ChatRequest, fn ollama.ChatResponseFunc) error {
	f.req = req
	if f.err != nil {
		return f.err
	}
	for _, c := range f.chunks {
		if err := fn(ollama.ChatResponse{Message: ollama.Message{Role: "assistant", Content: c}}); err != nil {
			return err
		}
	}
	return nil
}

func TestOllamaClient_Complete(t *testing.T) {
	api := &fakeChatter{chunks: []string{`{"ambiguity":`, `{"score":4}}`}}
	c := llm.NewOllamaClientWithAPI(api, "ollama:llama3.1", 0.2, 1024)
	require.Equal(t, "ollama:llama3.1", c.Name())

	out, err := c.Complete(context.Background(), "prompt text")
	require.NoError(t, err)
	require.Equal(t, `{"ambiguity":{"score":4}}`, out)

	require.Equal(t, "llama3.1", api.req.Model)
	require.NotNil(t, api.req.Stream)
	require.False(t, *api.req.Stream)
	require.Equal(t, "prompt text", api.req.Messages[0].Content)
	require.Equal(t, 1024, api.req.Options["num_predict"])
}

func TestOllamaClient_Error(t *testing.T) {
	c := llm.NewOllamaClientWithAPI(&fakeChatter{err: errors.New("model not found")}, "llama3.1", 0.2, 1024)

	_, err := c.Complete(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "model not found")
}
