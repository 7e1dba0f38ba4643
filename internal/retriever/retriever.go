// Package retriever finds the chunks most similar to a query by brute-force
// cosine scoring over an index.
package retriever

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/internal/provider"
	"github.com/thechalk/chalkbot/internal/store"
)

// Retriever scores every index entry against the query embedding and keeps
// the top-k above a similarity floor.
type Retriever struct {
	embedder      provider.Embedder
	topK          int
	minSimilarity float64
}

// New creates a retriever. topK must be at least 1 and minSimilarity within
// [-1, 1]; anything else is ErrInvalidConfiguration.
func New(embedder provider.Embedder, topK int, minSimilarity float64) (*Retriever, error) {
	if topK < 1 {
		return nil, fmt.Errorf("%w: top-k must be at least 1, got %d", models.ErrInvalidConfiguration, topK)
	}
	if minSimilarity < -1 || minSimilarity > 1 {
		return nil, fmt.Errorf("%w: min similarity must be in [-1, 1], got %g", models.ErrInvalidConfiguration, minSimilarity)
	}
	return &Retriever{embedder: embedder, topK: topK, minSimilarity: minSimilarity}, nil
}

// Retrieve returns up to top-k chunks from idx ordered by descending cosine
// similarity to query, dropping hits below the similarity floor. Ties keep
// index order, so results are deterministic. An empty index short-circuits
// without calling the embedder; an embedding failure is returned as-is and
// wraps ErrEmbeddingUnavailable.
func (r *Retriever) Retrieve(ctx context.Context, idx *store.Index, query string) ([]models.RetrievalResult, error) {
	if idx == nil || idx.IsEmpty() {
		return nil, nil
	}
	queryEmb, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]models.RetrievalResult, idx.Len())
	for i, emb := range idx.Embeddings {
		results[i] = models.RetrievalResult{
			Text:  idx.Chunks[i],
			Score: Cosine(queryEmb, emb),
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })

	k := r.topK
	if k > len(results) {
		k = len(results)
	}
	results = results[:k]

	kept := results[:0]
	for _, res := range results {
		if res.Score >= r.minSimilarity {
			kept = append(kept, res)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return kept, nil
}

// Cosine returns the cosine similarity of two vectors, in [-1, 1]. Vectors
// of mismatched dimension or zero norm score 0 instead of erroring, so one
// degenerate entry cannot poison a whole retrieval.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Max(-1, math.Min(1, sim))
}
