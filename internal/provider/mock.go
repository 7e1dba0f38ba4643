package provider

import (
	"context"
	"hash/fnv"
	"math"
	"sync"

	"github.com/thechalk/chalkbot/pkg/utils"
)

// MockEmbedder is a deterministic embedder for tests. The same text always
// gets the same unit-length embedding, derived from the text hash. Safe for
// concurrent Embed calls; the answer engine retrieves scopes in parallel.
type MockEmbedder struct {
	dimensions int
	// Fixed maps exact texts to fixed vectors, overriding the hash-derived
	// embedding. Lets tests pin a query to a stored chunk.
	Fixed map[string][]float32
	// Err, when set, is returned from every Embed call.
	Err error

	mu    sync.Mutex
	calls int
}

// NewMockEmbedder returns a deterministic embedder of the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 8
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic embedding based on the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.Err != nil {
		return nil, e.Err
	}
	if v, ok := e.Fixed[text]; ok {
		out := make([]float32, len(v))
		copy(out, v)
		return out, nil
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(seed)*float64(i+1))*0.1 + 0.01)
	}
	// Unit length so inner product equals cosine similarity.
	utils.NormalizeL2(emb)
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// CallCount returns how many times Embed was called.
func (e *MockEmbedder) CallCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// MockGenerator is a scripted generator for tests. Responses are returned
// in order; the last response repeats once the script is exhausted.
type MockGenerator struct {
	Responses []string
	// Err, when set, is returned from every Generate call.
	Err error
	// Prompts records every prompt received.
	Prompts []string
}

// Generate returns the next scripted response.
func (g *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.Prompts = append(g.Prompts, prompt)
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Responses) == 0 {
		return "", nil
	}
	i := len(g.Prompts) - 1
	if i >= len(g.Responses) {
		i = len(g.Responses) - 1
	}
	return g.Responses[i], nil
}
