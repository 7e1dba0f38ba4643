package docsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/thechalk/chalkbot/internal/extract"
	"github.com/thechalk/chalkbot/internal/models"
)

// FilesSource reads the shared corpus from a directory of course material
// files, extracting text per format. It serves only the global scope; user
// corpora come from the platform database.
type FilesSource struct {
	dir         string
	allowedExts []string
	extractor   *extract.Extractor
	logger      *zap.Logger // optional; when set, logs skipped files
}

// FilesOption configures a FilesSource.
type FilesOption func(*FilesSource)

// WithLogger sets a logger for debug output (files read, files skipped).
func WithLogger(l *zap.Logger) FilesOption {
	return func(s *FilesSource) { s.logger = l }
}

// NewFilesSource creates a source over dir. If allowedExts is non-empty,
// only files with a listed extension are read (case-insensitive).
func NewFilesSource(dir string, allowedExts []string, opts ...FilesOption) (*FilesSource, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat corpus directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	s := &FilesSource{dir: dir, allowedExts: allowedExts, extractor: extract.NewExtractor()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListDocuments walks the corpus directory and extracts one document per
// readable file, in path order. Files that fail extraction are skipped and
// logged, not fatal. Non-global scopes get no documents.
func (s *FilesSource) ListDocuments(ctx context.Context, scope models.Scope) ([]models.Document, error) {
	if !scope.IsGlobal() {
		return nil, nil
	}
	var docs []models.Document
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if len(s.allowedExts) > 0 && !extensionAllowed(ext, s.allowedExts) {
			return nil
		}
		info, statErr := os.Stat(path)
		if statErr != nil || !info.Mode().IsRegular() {
			return nil
		}
		text, extractErr := s.extractor.Extract(path)
		if extractErr != nil {
			if s.logger != nil {
				s.logger.Warn("corpus file skipped",
					zap.String("path", path),
					zap.Error(extractErr))
			}
			return nil
		}
		if strings.TrimSpace(text) == "" {
			return nil
		}
		docs = append(docs, models.Document{Text: text})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus directory: %w", err)
	}
	return docs, nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
