package answer

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/thechalk/chalkbot/internal/builder"
	"github.com/thechalk/chalkbot/internal/chunker"
	"github.com/thechalk/chalkbot/internal/docsource"
	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/internal/provider"
	"github.com/thechalk/chalkbot/internal/retriever"
	"github.com/thechalk/chalkbot/internal/store"
)

const goodAnswer = "STEM stands for Science, Technology, Engineering, and Mathematics, the four pillars of the curriculum."

type engineFixture struct {
	engine    *Engine
	embedder  *provider.MockEmbedder
	generator *provider.MockGenerator
	store     *store.FileStore
	manager   *builder.Manager
}

func newFixture(t *testing.T, docs []models.Document, responses []string) *engineFixture {
	t.Helper()
	fs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ch, err := chunker.New(500)
	if err != nil {
		t.Fatal(err)
	}
	emb := provider.NewMockEmbedder(4)
	m := builder.NewManager(fs, builder.New(ch, emb), &docsource.Static{Documents: docs})
	r, err := retriever.New(emb, 3, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	gen := &provider.MockGenerator{Responses: responses}
	return &engineFixture{
		engine:    NewEngine(m, r, gen, NewValidator(0, nil)),
		embedder:  emb,
		generator: gen,
		store:     fs,
		manager:   m,
	}
}

// No stores, no user: retrieval comes back empty twice and the engine
// answers from a context-free prompt.
func TestEngine_ColdStart(t *testing.T) {
	f := newFixture(t, nil, []string{goodAnswer})

	ans := f.engine.Answer(context.Background(), "what is stem", "")
	if ans.Grounded {
		t.Error("cold start answer must not be grounded")
	}
	if ans.Text != goodAnswer {
		t.Errorf("text=%q", ans.Text)
	}
	if len(f.generator.Prompts) != 1 || strings.Contains(f.generator.Prompts[0], "Excerpts") {
		t.Errorf("prompts=%v, want a single context-free prompt", f.generator.Prompts)
	}
}

func TestEngine_GroundedHit(t *testing.T) {
	f := newFixture(t, nil, []string{goodAnswer})

	// Stored vector identical to the query embedding: similarity 1.0.
	f.embedder.Fixed = map[string][]float32{"What does STEM stand for?": {1, 0, 0, 0}}
	idx := store.NewIndex(models.GlobalScope())
	idx.Append("STEM stands for Science, Technology, Engineering, Mathematics", []float32{1, 0, 0, 0})
	if err := f.store.Save(idx); err != nil {
		t.Fatal(err)
	}

	ans := f.engine.Answer(context.Background(), "What does STEM stand for?", "")
	if !ans.Grounded {
		t.Error("answer should be grounded")
	}
	if ans.Text != goodAnswer {
		t.Errorf("text=%q", ans.Text)
	}
	if len(f.generator.Prompts) != 1 {
		t.Fatalf("prompts=%v", f.generator.Prompts)
	}
	prompt := f.generator.Prompts[0]
	if !strings.Contains(prompt, "STEM stands for Science") || !strings.Contains(prompt, "What does STEM stand for?") {
		t.Errorf("grounded prompt missing context or query:\n%s", prompt)
	}
}

func TestEngine_RefusalTriggersDegradedRetry(t *testing.T) {
	f := newFixture(t, nil, []string{
		"I could not find this in the document, so I cannot help with that question at all.",
		goodAnswer,
	})
	f.embedder.Fixed = map[string][]float32{"query": {1, 0, 0, 0}}
	idx := store.NewIndex(models.GlobalScope())
	idx.Append("some relevant chunk", []float32{1, 0, 0, 0})
	if err := f.store.Save(idx); err != nil {
		t.Fatal(err)
	}

	ans := f.engine.Answer(context.Background(), "query", "")
	if ans.Grounded {
		t.Error("retried answer must not be grounded")
	}
	if ans.Text != goodAnswer {
		t.Errorf("text=%q, want the second generation", ans.Text)
	}
	if len(f.generator.Prompts) != 2 {
		t.Fatalf("prompts=%d, want grounded then degraded", len(f.generator.Prompts))
	}
	if strings.Contains(f.generator.Prompts[1], "Excerpts") {
		t.Error("retry prompt should be context-free")
	}
}

func TestEngine_UserContextComesFirst(t *testing.T) {
	f := newFixture(t, nil, []string{goodAnswer})
	f.embedder.Fixed = map[string][]float32{"query": {1, 0, 0, 0}}

	global := store.NewIndex(models.GlobalScope())
	global.Append("shared chunk", []float32{1, 0, 0, 0})
	if err := f.store.Save(global); err != nil {
		t.Fatal(err)
	}
	personal := store.NewIndex(models.UserScope("alice"))
	personal.Append("personal chunk", []float32{1, 0, 0, 0})
	if err := f.store.Save(personal); err != nil {
		t.Fatal(err)
	}

	ans := f.engine.Answer(context.Background(), "query", "alice")
	if !ans.Grounded {
		t.Fatal("answer should be grounded")
	}
	prompt := f.generator.Prompts[0]
	personalAt := strings.Index(prompt, "personal chunk")
	sharedAt := strings.Index(prompt, "shared chunk")
	if personalAt < 0 || sharedAt < 0 {
		t.Fatalf("prompt missing chunks:\n%s", prompt)
	}
	if personalAt > sharedAt {
		t.Error("personal context should precede shared context in the prompt")
	}
}

func TestEngine_EmbeddingOutageDegrades(t *testing.T) {
	f := newFixture(t, nil, []string{goodAnswer})
	idx := store.NewIndex(models.GlobalScope())
	idx.Append("chunk", []float32{1, 0, 0, 0})
	if err := f.store.Save(idx); err != nil {
		t.Fatal(err)
	}
	f.embedder.Err = provider.ErrEmbeddingUnavailable

	ans := f.engine.Answer(context.Background(), "query", "")
	if ans.Grounded {
		t.Error("answer must not be grounded when embedding is down")
	}
	if ans.Text != goodAnswer {
		t.Errorf("text=%q", ans.Text)
	}
}

func TestEngine_GenerationOutageReturnsApology(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.generator.Err = provider.ErrGenerationUnavailable

	ans := f.engine.Answer(context.Background(), "query", "")
	if ans.Grounded {
		t.Error("apology must not be grounded")
	}
	if ans.Text != DefaultApology {
		t.Errorf("text=%q, want the apology", ans.Text)
	}
}

func TestEngine_DegradedOutputIsTerminal(t *testing.T) {
	// The degraded attempt returns something too short to validate; it is
	// still returned rather than retried or replaced.
	f := newFixture(t, nil, []string{"Short."})
	ans := f.engine.Answer(context.Background(), "query", "")
	if ans.Text != "Short." {
		t.Errorf("text=%q, want the degraded output as-is", ans.Text)
	}
	if len(f.generator.Prompts) != 1 {
		t.Errorf("prompts=%d, degraded attempt must not be retried", len(f.generator.Prompts))
	}
}

func TestEngine_EmptyDegradedOutputBecomesApology(t *testing.T) {
	f := newFixture(t, nil, []string{"   "})
	ans := f.engine.Answer(context.Background(), "query", "")
	if ans.Text != DefaultApology {
		t.Errorf("text=%q, want the apology", ans.Text)
	}
}

// answer() absorbs every recoverable condition into a non-empty answer.
func TestEngine_FallbackCompleteness(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *engineFixture
	}{
		{"missing stores", func(t *testing.T) *engineFixture {
			return newFixture(t, nil, []string{goodAnswer})
		}},
		{"embedding outage", func(t *testing.T) *engineFixture {
			f := newFixture(t, nil, []string{goodAnswer})
			f.embedder.Err = errors.New("down")
			return f
		}},
		{"all-refusal output", func(t *testing.T) *engineFixture {
			refusal := "There is no information found about this topic in any of the available documents."
			return newFixture(t, nil, []string{refusal, refusal})
		}},
		{"generation outage", func(t *testing.T) *engineFixture {
			f := newFixture(t, nil, nil)
			f.generator.Err = errors.New("down")
			return f
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.setup(t)
			ans := f.engine.Answer(context.Background(), "any question", "alice")
			if strings.TrimSpace(ans.Text) == "" {
				t.Error("answer text must never be empty")
			}
		})
	}
}

func TestEngine_CorruptStoreDegrades(t *testing.T) {
	f := newFixture(t, nil, []string{goodAnswer})
	// Write garbage where the global artifact lives.
	if err := os.WriteFile(f.store.Path(models.GlobalScope()), []byte(`{{{`), 0644); err != nil {
		t.Fatal(err)
	}
	ans := f.engine.Answer(context.Background(), "query", "")
	if ans.Grounded || ans.Text != goodAnswer {
		t.Errorf("answer=%+v, want degraded answer despite corrupt store", ans)
	}
}

func TestEngine_CustomApology(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.generator.Err = errors.New("down")
	custom := "The tutor is unavailable right now."
	r, err := retriever.New(f.embedder, 3, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	engine := NewEngine(f.manager, r, f.generator, NewValidator(0, nil), WithApology(custom))
	ans := engine.Answer(context.Background(), "query", "")
	if ans.Text != custom {
		t.Errorf("text=%q, want %q", ans.Text, custom)
	}
}
