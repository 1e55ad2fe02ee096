package llm

import "context"

type Provider interface {
	// Generate returns a single completion for the prompt (no streaming).
	Generate(ctx context.Context, prompt string) (string, error)
	// Caption describes an image following the instruction prompt.
	Caption(ctx context.Context, image []byte, instruction string) (string, error)
	Close() error
}
