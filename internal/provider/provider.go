// Package provider defines the external model capabilities the engine
// depends on: text embedding and text generation. One implementation per
// vendor lives in a subpackage; the engine never branches on vendor identity.
package provider

import (
	"context"
	"errors"
)

// ErrEmbeddingUnavailable marks a provider-side failure while embedding
// (rate limit, auth, network, timeout). Query-time failures degrade the
// answer engine to a context-free prompt; build-time failures skip the
// offending chunk.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

// ErrGenerationUnavailable marks a provider-side failure while generating
// text. Recoverable once per query via the degraded prompt path.
var ErrGenerationUnavailable = errors.New("generation provider unavailable")

// Embedder produces a fixed-dimension vector for a text. All vectors from
// one Embedder share the same dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
