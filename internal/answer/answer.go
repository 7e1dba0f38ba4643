// Package answer orchestrates retrieval-augmented answering: retrieve from
// the personal and shared corpora, fuse, prompt, validate, and fall back.
package answer

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/thechalk/chalkbot/internal/builder"
	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/internal/provider"
	"github.com/thechalk/chalkbot/internal/retriever"
)

// DefaultApology is the terminal fallback returned when even the degraded
// generation attempt fails. The platform serves Vietnamese-speaking
// students, so it stays bilingual.
const DefaultApology = "Xin lỗi, có lỗi xảy ra khi xử lý câu hỏi. Vui lòng thử lại sau. (Sorry, something went wrong while processing your question. Please try again later.)"

// Engine answers queries over the per-user and shared indexes. Answer never
// returns an error: empty corpora, low similarity, model refusals, and
// provider outages all resolve through the fallback chain to some non-empty
// text.
type Engine struct {
	indexes   *builder.Manager
	retriever *retriever.Retriever
	generator provider.Generator
	validator *Validator
	apology   string
	logger    *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithApology overrides the terminal fallback text.
func WithApology(text string) Option {
	return func(e *Engine) {
		if strings.TrimSpace(text) != "" {
			e.apology = text
		}
	}
}

// NewEngine creates an answer engine.
func NewEngine(indexes *builder.Manager, r *retriever.Retriever, g provider.Generator, v *Validator, opts ...Option) *Engine {
	e := &Engine{
		indexes:   indexes,
		retriever: r,
		generator: g,
		validator: v,
		apology:   DefaultApology,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer answers query for the given user. An empty userID skips the
// personal corpus. Retrieval is best-effort: a missing store, a corrupt
// artifact, or an embedding outage degrades to a context-free prompt
// instead of failing the call.
func (e *Engine) Answer(ctx context.Context, query, userID string) models.Answer {
	var (
		userResults   []models.RetrievalResult
		globalResults []models.RetrievalResult
		wg            sync.WaitGroup
	)

	if userID != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userResults = e.retrieve(ctx, models.UserScope(userID), query)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		globalResults = e.retrieve(ctx, models.GlobalScope(), query)
	}()
	wg.Wait()

	fused := FuseContext(userResults, globalResults)
	if len(fused) == 0 {
		if e.logger != nil {
			e.logger.Debug("no usable context, answering degraded", zap.String("query", query))
		}
		return models.Answer{Text: e.generateDegraded(ctx, query), Grounded: false}
	}

	text, err := e.generator.Generate(ctx, GroundedPrompt(query, fused))
	if err == nil && e.validator.Validate(text) {
		return models.Answer{Text: text, Grounded: true}
	}
	if e.logger != nil {
		e.logger.Debug("grounded attempt rejected, retrying degraded",
			zap.String("query", query),
			zap.Bool("generation_failed", err != nil),
			zap.Error(err))
	}
	return models.Answer{Text: e.generateDegraded(ctx, query), Grounded: false}
}

// retrieve runs one best-effort retrieval pass for a scope.
func (e *Engine) retrieve(ctx context.Context, scope models.Scope, query string) []models.RetrievalResult {
	idx, err := e.indexes.GetOrBuild(ctx, scope)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("index unavailable, skipping scope",
				zap.String("scope", scope.String()),
				zap.Error(err))
		}
		return nil
	}
	results, err := e.retriever.Retrieve(ctx, idx, query)
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("retrieval failed, skipping scope",
				zap.String("scope", scope.String()),
				zap.Error(err))
		}
		return nil
	}
	return results
}

// generateDegraded runs the context-free attempt. It is never retried: its
// output is terminal, and the static apology covers a failed or empty
// generation.
func (e *Engine) generateDegraded(ctx context.Context, query string) string {
	text, err := e.generator.Generate(ctx, DegradedPrompt(query))
	if err != nil {
		if e.logger != nil {
			e.logger.Warn("degraded generation failed, returning apology", zap.Error(err))
		}
		return e.apology
	}
	if strings.TrimSpace(text) == "" {
		return e.apology
	}
	return text
}
