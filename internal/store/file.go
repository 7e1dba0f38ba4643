package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/thechalk/chalkbot/internal/models"
)

// artifact is the on-disk JSON shape. Only chunks and embeddings are
// required on load; the metadata fields are written for inspection and
// tolerated when absent, so older artifacts keep loading.
type artifact struct {
	Chunks      []string    `json:"chunks"`
	Embeddings  [][]float32 `json:"embeddings"`
	UserID      string      `json:"user_id,omitempty"`
	TotalChunks int         `json:"total_chunks,omitempty"`
	CreatedAt   string      `json:"created_at,omitempty"`
}

// FileStore persists one JSON artifact per scope under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the artifact directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the artifact path for scope.
func (s *FileStore) Path(scope models.Scope) string {
	return filepath.Join(s.dir, scope.ArtifactName())
}

// IsPresent reports whether an artifact exists for scope.
func (s *FileStore) IsPresent(scope models.Scope) bool {
	_, err := os.Stat(s.Path(scope))
	return err == nil
}

// Load reads the artifact for scope. A missing artifact yields an empty
// index, not an error. An unparseable or inconsistent artifact yields
// ErrCorrupt; the caller decides whether to rebuild.
func (s *FileStore) Load(scope models.Scope) (*Index, error) {
	data, err := os.ReadFile(s.Path(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return NewIndex(scope), nil
		}
		return nil, fmt.Errorf("read index artifact: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, scope, err)
	}
	idx := &Index{Scope: scope, Chunks: a.Chunks, Embeddings: a.Embeddings}
	if err := idx.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, scope, err)
	}
	return idx, nil
}

// Save persists idx for its scope. The write is atomic from a reader's
// perspective: content goes to a temp file in the same directory which is
// then renamed over the artifact, so a concurrent Load sees either the old
// or the new content, never a half-written file.
func (s *FileStore) Save(idx *Index) error {
	if err := idx.validate(); err != nil {
		return fmt.Errorf("refusing to save inconsistent index: %w", err)
	}
	a := artifact{
		Chunks:      idx.Chunks,
		Embeddings:  idx.Embeddings,
		UserID:      idx.Scope.UserID(),
		TotalChunks: idx.Len(),
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	if a.Chunks == nil {
		a.Chunks = []string{}
	}
	if a.Embeddings == nil {
		a.Embeddings = [][]float32{}
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal index artifact: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, scopeTempPattern(idx.Scope))
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(idx.Scope)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

// Delete removes the artifact for scope. Missing artifacts are not an error.
func (s *FileStore) Delete(scope models.Scope) error {
	err := os.Remove(s.Path(scope))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

// Profile returns a summary of the persisted artifact for scope, or nil if
// none exists.
func (s *FileStore) Profile(scope models.Scope) (*Profile, error) {
	data, err := os.ReadFile(s.Path(scope))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read index artifact: %w", err)
	}
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, scope, err)
	}
	total := a.TotalChunks
	if total == 0 {
		total = len(a.Chunks)
	}
	return &Profile{
		UserID:      scope.UserID(),
		TotalChunks: total,
		CreatedAt:   a.CreatedAt,
		HasData:     len(a.Chunks) > 0,
	}, nil
}

// ListUserScopes returns the user IDs that have a persisted artifact, by
// scanning the artifact directory for user_<id>_embeddings.json files.
func (s *FileStore) ListUserScopes() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read store dir: %w", err)
	}
	var users []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "user_") || !strings.HasSuffix(name, "_embeddings.json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(name, "user_"), "_embeddings.json")
		if id != "" {
			users = append(users, id)
		}
	}
	return users, nil
}

// scopeTempPattern keeps temp files distinguishable per scope and ensures
// they never collide with a real artifact name.
func scopeTempPattern(scope models.Scope) string {
	if scope.IsGlobal() {
		return ".stem_embeddings-*.tmp"
	}
	return ".user_" + scope.UserID() + "-*.tmp"
}
