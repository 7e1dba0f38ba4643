package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/thechalk/chalkbot/internal/chunker"
	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/internal/provider"
)

func newTestBuilder(t *testing.T, maxWords int, emb provider.Embedder) *Builder {
	t.Helper()
	ch, err := chunker.New(maxWords)
	if err != nil {
		t.Fatal(err)
	}
	return New(ch, emb)
}

func TestBuilder_Build(t *testing.T) {
	emb := provider.NewMockEmbedder(4)
	b := newTestBuilder(t, 3, emb)

	docs := []models.Document{
		{Text: "one two three four five"},
		{Text: "owned by someone", OwnerID: "alice"},
	}
	idx, err := b.Build(context.Background(), models.GlobalScope(), docs)
	if err != nil {
		t.Fatal(err)
	}
	// The unowned doc splits into two chunks; the owned doc is one more.
	if idx.Len() != 3 {
		t.Fatalf("Len=%d chunks=%v", idx.Len(), idx.Chunks)
	}
	if idx.Chunks[0] != "one two three" || idx.Chunks[1] != "four five" {
		t.Errorf("chunks=%v", idx.Chunks)
	}
	if len(idx.Embeddings[0]) != 4 {
		t.Errorf("embedding dim=%d", len(idx.Embeddings[0]))
	}
}

func TestBuilder_BuildGlobalIncludesOwnedDocuments(t *testing.T) {
	b := newTestBuilder(t, 10, provider.NewMockEmbedder(4))
	docs := []models.Document{
		{Text: "post from alice about thermodynamics", OwnerID: "alice"},
		{Text: "shared course syllabus"},
	}
	idx, err := b.Build(context.Background(), models.GlobalScope(), docs)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 2 {
		t.Fatalf("global index has %d chunks, want 2: %v", idx.Len(), idx.Chunks)
	}
	if idx.Chunks[0] != "post from alice about thermodynamics" {
		t.Errorf("owned document missing from global index: %v", idx.Chunks)
	}
}

func TestBuilder_BuildUserScope(t *testing.T) {
	b := newTestBuilder(t, 10, provider.NewMockEmbedder(4))
	docs := []models.Document{
		{Text: "shared"},
		{Text: "alice notes", OwnerID: "alice"},
		{Text: "bob notes", OwnerID: "bob"},
	}
	idx, err := b.Build(context.Background(), models.UserScope("alice"), docs)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 1 || idx.Chunks[0] != "alice notes" {
		t.Errorf("chunks=%v", idx.Chunks)
	}
}

func TestBuilder_BuildSkipsFailedEmbeddings(t *testing.T) {
	emb := provider.NewMockEmbedder(4)
	emb.Err = errors.New("provider down")
	b := newTestBuilder(t, 3, emb)

	idx, err := b.Build(context.Background(), models.GlobalScope(), []models.Document{{Text: "some text here"}})
	if err != nil {
		t.Fatalf("embed failures must not fail the build: %v", err)
	}
	if !idx.IsEmpty() {
		t.Errorf("all chunks should be skipped, got %d", idx.Len())
	}
}

func TestBuilder_BuildNormalizesWhitespace(t *testing.T) {
	b := newTestBuilder(t, 10, provider.NewMockEmbedder(4))
	idx, err := b.Build(context.Background(), models.GlobalScope(),
		[]models.Document{{Text: "  spaced\n\nout\ttext  "}})
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 1 || idx.Chunks[0] != "spaced out text" {
		t.Errorf("chunks=%v", idx.Chunks)
	}
}

func TestBuilder_BuildCancelled(t *testing.T) {
	b := newTestBuilder(t, 1, provider.NewMockEmbedder(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx, models.GlobalScope(), []models.Document{{Text: "a b c"}}); !errors.Is(err, context.Canceled) {
		t.Errorf("err=%v, want context.Canceled", err)
	}
}
