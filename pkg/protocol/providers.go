package protocol

import "context"

// LLMProvider is the narrow capability interface llm steps dispatch
// through. Model invocation itself lives outside the engine.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, options map[string]any) (string, error)
}

// SecretsProvider resolves the per-organization secrets exposed to
// templates and sandboxed connectors.
type SecretsProvider interface {
	Secrets(ctx context.Context, organizationID string) (map[string]string, error)
}
