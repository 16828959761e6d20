package ports

import "context"

// ModelClient sends a prompt to a hosted language model and returns its raw text reply.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider and model for logs and metrics.
	Name() string
}
