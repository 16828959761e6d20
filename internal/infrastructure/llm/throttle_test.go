package llm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/avatarctic/requirements-evaluator/configs"
	"github.com/avatarctic/requirements-evaluator/internal/infrastructure/llm"
	"github.com/avatarctic/requirements-evaluator/internal/mocks"
)

func TestThrottled_DelegatesWithinBurst(t *testing.T) {
	inner := &mocks.ModelClientMock{NameValue: "mock", CompleteFn: func(context.Context, string) (string, error) { return "{}", nil }}
	th := llm.NewThrottled(inner, 1, 2)
	require.Equal(t, "mock", th.Name())

	for i := 0; i < 2; i++ {
		out, err := th.Complete(context.Background(), "p")
		require.NoError(t, err)
		require.Equal(t, "{}", out)
	}
	require.Equal(t, 2, inner.Calls())
}

func TestThrottled_WaitRespectsDeadline(t *testing.T) {
	inner := &mocks.ModelClientMock{}
	th := llm.NewThrottled(inner, 0.01, 1)

	_, err := th.Complete(context.Background(), "p")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = th.Complete(ctx, "p")
	require.Error(t, err)
	require.Equal(t, 1, inner.Calls())
}

func TestNewModelClient(t *testing.T) {
	ctx := context.Background()

	c, err := llm.NewModelClient(ctx, &configs.ModelConfig{Provider: configs.ProviderOpenAI, ModelID: "gpt-4o-mini", BaseURL: "http://localhost:1/v1"})
	require.NoError(t, err)
	require.IsType(t, &llm.OpenAIClient{}, c)

	c, err = llm.NewModelClient(ctx, &configs.ModelConfig{Provider: configs.ProviderOllama, ModelID: "llama3.1", BaseURL: "http://localhost:11434", MaxRPS: 2, Burst: 1})
	require.NoError(t, err)
	require.IsType(t, &llm.Throttled{}, c)
	require.Equal(t, "ollama:llama3.1", c.Name())

	_, err = llm.NewModelClient(ctx, &configs.ModelConfig{Provider: "watson"})
	require.Error(t, err)
}
