// Package builder turns source documents into per-scope embedding indexes
// and decides when an index is built versus loaded from disk.
package builder

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/thechalk/chalkbot/internal/chunker"
	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/internal/provider"
	"github.com/thechalk/chalkbot/internal/store"
)

// Builder chunks and embeds documents into an index for one scope.
type Builder struct {
	chunker  *chunker.Chunker
	embedder provider.Embedder
	logger   *zap.Logger // optional; when set, logs skipped chunks
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// New creates a builder from a chunker and an embedder.
func New(ch *chunker.Chunker, embedder provider.Embedder, opts ...Option) *Builder {
	b := &Builder{chunker: ch, embedder: embedder}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the index for scope from docs. The global index covers
// every document; a user index keeps only that user's documents, so it never
// contains another user's content. A chunk whose embedding call fails is skipped and logged rather
// than failing the whole build; zero surviving entries is a valid empty
// index. Build only errors when ctx is done.
func (b *Builder) Build(ctx context.Context, scope models.Scope, docs []models.Document) (*store.Index, error) {
	idx := store.NewIndex(scope)
	for _, doc := range docs {
		if !belongsToScope(doc, scope) {
			continue
		}
		for _, chunk := range b.chunker.Chunk(chunker.Normalize(doc.Text)) {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("build %s index: %w", scope, err)
			}
			emb, err := b.embedder.Embed(ctx, chunk)
			if err != nil {
				if b.logger != nil {
					b.logger.Warn("chunk skipped, embedding failed",
						zap.String("scope", scope.String()),
						zap.Error(err))
				}
				continue
			}
			idx.Append(chunk, emb)
		}
	}
	if b.logger != nil {
		b.logger.Debug("index built",
			zap.String("scope", scope.String()),
			zap.Int("chunks", idx.Len()))
	}
	return idx, nil
}

// belongsToScope reports whether doc is part of scope's corpus. The global
// corpus spans every document, owned or not; a user corpus holds only that
// user's documents.
func belongsToScope(doc models.Document, scope models.Scope) bool {
	if scope.IsGlobal() {
		return true
	}
	return doc.OwnerID == scope.UserID()
}
