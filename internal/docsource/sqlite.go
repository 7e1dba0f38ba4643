package docsource

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/thechalk/chalkbot/internal/models"
)

// SQLiteSource reads indexable content from the platform database: uploaded
// study materials plus forum posts and comments. The global corpus is
// everything on the platform, authored or not; a user corpus is only what
// that user authored.
type SQLiteSource struct {
	db *sql.DB
}

// NewSQLiteSource opens or creates a SQLite database at dbPath and
// initializes the schema. Parent directories are created if they do not exist.
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteSource{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS materials (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL DEFAULT '',
		title TEXT,
		content TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_materials_owner ON materials(owner_id);

	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		title TEXT,
		body TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_posts_author ON posts(author_id);

	CREATE TABLE IF NOT EXISTS comments (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_comments_author ON comments(author_id);
	`
	_, err := db.Exec(schema)
	return err
}

// ListDocuments returns the scope's documents in stable creation order:
// materials first, then posts, then comments. Posts carry their title so the
// subject survives chunking.
func (s *SQLiteSource) ListDocuments(ctx context.Context, scope models.Scope) ([]models.Document, error) {
	var docs []models.Document

	materials, err := s.listMaterials(ctx, scope)
	if err != nil {
		return nil, err
	}
	docs = append(docs, materials...)

	posts, err := s.listPosts(ctx, scope)
	if err != nil {
		return nil, err
	}
	docs = append(docs, posts...)

	comments, err := s.listComments(ctx, scope)
	if err != nil {
		return nil, err
	}
	return append(docs, comments...), nil
}

func (s *SQLiteSource) listMaterials(ctx context.Context, scope models.Scope) ([]models.Document, error) {
	query := `SELECT owner_id, title, content FROM materials ORDER BY created_at, id`
	args := []interface{}{}
	if !scope.IsGlobal() {
		query = `SELECT owner_id, title, content FROM materials WHERE owner_id = ? ORDER BY created_at, id`
		args = append(args, scope.UserID())
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query materials: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var ownerID, title, content string
		if err := rows.Scan(&ownerID, &title, &content); err != nil {
			return nil, err
		}
		docs = append(docs, models.Document{Text: joinTitled(title, content), OwnerID: ownerID})
	}
	return docs, rows.Err()
}

func (s *SQLiteSource) listPosts(ctx context.Context, scope models.Scope) ([]models.Document, error) {
	query := `SELECT author_id, title, body FROM posts ORDER BY created_at, id`
	args := []interface{}{}
	if !scope.IsGlobal() {
		query = `SELECT author_id, title, body FROM posts WHERE author_id = ? ORDER BY created_at, id`
		args = append(args, scope.UserID())
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var authorID, title, body string
		if err := rows.Scan(&authorID, &title, &body); err != nil {
			return nil, err
		}
		docs = append(docs, models.Document{Text: joinTitled(title, body), OwnerID: authorID})
	}
	return docs, rows.Err()
}

func (s *SQLiteSource) listComments(ctx context.Context, scope models.Scope) ([]models.Document, error) {
	query := `SELECT author_id, body FROM comments ORDER BY created_at, id`
	args := []interface{}{}
	if !scope.IsGlobal() {
		query = `SELECT author_id, body FROM comments WHERE author_id = ? ORDER BY created_at, id`
		args = append(args, scope.UserID())
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var authorID, body string
		if err := rows.Scan(&authorID, &body); err != nil {
			return nil, err
		}
		docs = append(docs, models.Document{Text: body, OwnerID: authorID})
	}
	return docs, rows.Err()
}

// AddMaterial inserts a study material. An empty ownerID makes it part of
// the shared corpus.
func (s *SQLiteSource) AddMaterial(ctx context.Context, id, ownerID, title, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO materials (id, owner_id, title, content) VALUES (?, ?, ?, ?)`,
		id, ownerID, title, content,
	)
	return err
}

// AddPost inserts a forum post authored by userID.
func (s *SQLiteSource) AddPost(ctx context.Context, id, authorID, title, body string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, title, body) VALUES (?, ?, ?, ?)`,
		id, authorID, title, body,
	)
	return err
}

// AddComment inserts a comment authored by userID.
func (s *SQLiteSource) AddComment(ctx context.Context, id, authorID, body string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, author_id, body) VALUES (?, ?, ?)`,
		id, authorID, body,
	)
	return err
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

func joinTitled(title, body string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return body
	}
	return title + "\n" + body
}
