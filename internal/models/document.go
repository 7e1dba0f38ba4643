// Package models defines core data structures for documents, retrieval results, and answers.
package models

// Document is a unit of source content fed into indexing. Documents are
// produced on demand by a docsource.Source and never mutated or persisted
// by the engine.
type Document struct {
	Text    string `json:"text"`
	OwnerID string `json:"owner_id,omitempty"` // empty = global corpus only
}

// RetrievalResult is a single retrieval hit: a chunk text and its cosine
// similarity to the query, in [-1, 1]. Transient, never persisted.
type RetrievalResult struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Answer is the result of one orchestrated query. Grounded records whether
// any retrieved context was used when building the prompt.
type Answer struct {
	Text     string `json:"text"`
	Grounded bool   `json:"grounded"`
}
