package builder

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/thechalk/chalkbot/internal/docsource"
	"github.com/thechalk/chalkbot/internal/models"
	"github.com/thechalk/chalkbot/internal/store"
)

// Manager owns the load-or-build policy for scope indexes. A scope's index
// is loaded from the file store when its artifact exists, built from the
// document source only when absent, and cached in memory afterwards. A
// corrupt artifact is surfaced to the caller, never silently rebuilt over.
type Manager struct {
	store   *store.FileStore
	builder *Builder
	source  docsource.Source
	logger  *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-scope build locks
	cache map[string]*store.Index
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithManagerLogger sets a logger for debug output.
func WithManagerLogger(l *zap.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager over a file store, a builder, and a source.
func NewManager(fs *store.FileStore, b *Builder, src docsource.Source, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:   fs,
		builder: b,
		source:  src,
		locks:   make(map[string]*sync.Mutex),
		cache:   make(map[string]*store.Index),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrBuild returns the index for scope, loading the persisted artifact if
// present or building and persisting one if not. Concurrent calls for the
// same scope build at most once.
func (m *Manager) GetOrBuild(ctx context.Context, scope models.Scope) (*store.Index, error) {
	key := scope.String()

	m.mu.Lock()
	if idx, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return idx, nil
	}
	lock := m.scopeLock(key)
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()

	// Another caller may have finished while we waited on the scope lock.
	m.mu.Lock()
	if idx, ok := m.cache[key]; ok {
		m.mu.Unlock()
		return idx, nil
	}
	m.mu.Unlock()

	if m.store.IsPresent(scope) {
		idx, err := m.store.Load(scope)
		if err != nil {
			return nil, err
		}
		m.put(key, idx)
		if m.logger != nil {
			m.logger.Debug("index loaded from artifact",
				zap.String("scope", key),
				zap.Int("chunks", idx.Len()))
		}
		return idx, nil
	}
	return m.rebuildLocked(ctx, scope, key)
}

// Rebuild discards any cached or persisted index for scope and builds a
// fresh one from the document source.
func (m *Manager) Rebuild(ctx context.Context, scope models.Scope) (*store.Index, error) {
	key := scope.String()

	m.mu.Lock()
	lock := m.scopeLock(key)
	m.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return m.rebuildLocked(ctx, scope, key)
}

// rebuildLocked builds and persists the scope index. Caller holds the
// scope lock.
func (m *Manager) rebuildLocked(ctx context.Context, scope models.Scope, key string) (*store.Index, error) {
	docs, err := m.source.ListDocuments(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list documents for %s: %w", scope, err)
	}
	idx, err := m.builder.Build(ctx, scope, docs)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(idx); err != nil {
		return nil, fmt.Errorf("persist %s index: %w", scope, err)
	}
	m.put(key, idx)
	if m.logger != nil {
		m.logger.Info("index rebuilt",
			zap.String("scope", key),
			zap.Int("documents", len(docs)),
			zap.Int("chunks", idx.Len()))
	}
	return idx, nil
}

// Invalidate drops the cached index for scope so the next GetOrBuild
// reloads the artifact. Used when the artifact changes on disk.
func (m *Manager) Invalidate(scope models.Scope) {
	m.mu.Lock()
	delete(m.cache, scope.String())
	m.mu.Unlock()
}

func (m *Manager) scopeLock(key string) *sync.Mutex {
	if l, ok := m.locks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	m.locks[key] = l
	return l
}

func (m *Manager) put(key string, idx *store.Index) {
	m.mu.Lock()
	m.cache[key] = idx
	m.mu.Unlock()
}
