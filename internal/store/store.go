// Package store persists per-scope embedding indexes: parallel lists of
// chunk texts and vectors, one JSON artifact per scope.
package store

import (
	"errors"

	"github.com/thechalk/chalkbot/internal/models"
)

// ErrCorrupt marks a persisted artifact that exists but cannot be parsed or
// is internally inconsistent (mismatched array lengths, uneven vector
// dimensions). The caller decides whether to rebuild or propagate; Load
// never silently discards a corrupt artifact.
var ErrCorrupt = errors.New("index store corrupt")

// Index is an in-memory embedding index for one scope. Chunks and
// Embeddings are parallel: Embeddings[i] is the vector for Chunks[i], and
// the two are never reordered independently. A zero-entry index is valid
// and means "not built yet" or "no data for this scope".
type Index struct {
	Scope      models.Scope
	Chunks     []string
	Embeddings [][]float32
}

// NewIndex returns an empty index for scope.
func NewIndex(scope models.Scope) *Index {
	return &Index{Scope: scope}
}

// Append adds one chunk/vector pair, keeping the parallel lists in lock-step.
func (x *Index) Append(chunk string, embedding []float32) {
	x.Chunks = append(x.Chunks, chunk)
	x.Embeddings = append(x.Embeddings, embedding)
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.Chunks)
}

// IsEmpty reports whether the index has no entries.
func (x *Index) IsEmpty() bool {
	return len(x.Chunks) == 0
}

// validate checks the parallel-list and dimension invariants.
func (x *Index) validate() error {
	if len(x.Chunks) != len(x.Embeddings) {
		return errors.New("chunks and embeddings length mismatch")
	}
	if len(x.Embeddings) == 0 {
		return nil
	}
	dim := len(x.Embeddings[0])
	for _, v := range x.Embeddings[1:] {
		if len(v) != dim {
			return errors.New("uneven embedding dimensions")
		}
	}
	return nil
}

// Profile summarizes a persisted scope for the profile API.
type Profile struct {
	UserID      string `json:"user_id,omitempty"`
	TotalChunks int    `json:"total_chunks"`
	CreatedAt   string `json:"created_at,omitempty"`
	HasData     bool   `json:"has_data"`
}
