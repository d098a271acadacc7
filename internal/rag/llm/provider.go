package llm

import "context"

// Provider completes a single-turn prompt.
type Provider interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}
