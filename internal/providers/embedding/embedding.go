package embedding

import "context"

type Provider interface {
	// Embed returns a fixed-length vector for the text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions is the length every returned vector has.
	Dimensions() int
	Close() error
}
