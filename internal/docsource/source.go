// Package docsource produces the documents an index is built from. Sources
// read platform content on demand; they never cache or mutate it.
package docsource

import (
	"context"

	"github.com/thechalk/chalkbot/internal/models"
)

// Source lists the documents available for indexing under a scope. The
// global scope spans all platform content, owned or not; a user scope is
// that user's own content. Returning no documents is not an error.
type Source interface {
	ListDocuments(ctx context.Context, scope models.Scope) ([]models.Document, error)
}

// Static is a fixed in-memory source, used in tests and for ad hoc training.
type Static struct {
	Documents []models.Document
	// Err, when set, is returned from every ListDocuments call.
	Err error
}

// ListDocuments returns the documents matching scope: every document for
// the global scope, the user's own documents for a user scope.
func (s *Static) ListDocuments(ctx context.Context, scope models.Scope) ([]models.Document, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []models.Document
	for _, d := range s.Documents {
		if matchesScope(d, scope) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Multi concatenates several sources, in order. Used when the shared corpus
// comes from a file directory and user content from the platform database.
type Multi []Source

// ListDocuments lists from every source in order. The first error aborts.
func (m Multi) ListDocuments(ctx context.Context, scope models.Scope) ([]models.Document, error) {
	var out []models.Document
	for _, src := range m {
		docs, err := src.ListDocuments(ctx, scope)
		if err != nil {
			return nil, err
		}
		out = append(out, docs...)
	}
	return out, nil
}

// matchesScope reports whether doc belongs to scope's corpus. All documents
// belong to the global corpus.
func matchesScope(doc models.Document, scope models.Scope) bool {
	if scope.IsGlobal() {
		return true
	}
	return doc.OwnerID == scope.UserID()
}
