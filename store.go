package staticblog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/eringen/staticblog/content"
)

// Store is a SQLite-backed post repository. It lets a site be built from a
// database snapshot instead of the content directory.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the preview server read while a rebuild imports. Writers wait
	// on busy_timeout instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL,
    author_name TEXT NOT NULL,
    author_image TEXT NOT NULL,
    published TEXT NOT NULL,
    thumbnail TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT ',,',
    content TEXT NOT NULL,
    draft INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_posts_published ON posts(published);
`)
	return err
}

const postColumns = `slug, title, summary, author_name, author_image, published, thumbnail, tags, content, draft`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (content.Post, error) {
	var (
		p     content.Post
		tags  string
		draft int
	)
	h := &p.Header
	if err := row.Scan(&h.Slug, &h.Title, &h.Summary, &h.AuthorName, &h.AuthorImage,
		&h.Published, &h.Thumbnail, &tags, &p.Raw, &draft); err != nil {
		return content.Post{}, err
	}
	h.Tags = ParseTags(tags)
	h.Draft = draft == 1
	return p, nil
}

// ListPosts returns the headers of all non-draft posts, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]content.Header, error) {
	return s.listPosts(ctx, `SELECT `+postColumns+` FROM posts WHERE draft = 0`)
}

// ListAllPosts returns every post header, drafts included.
func (s *Store) ListAllPosts(ctx context.Context) ([]content.Header, error) {
	return s.listPosts(ctx, `SELECT `+postColumns+` FROM posts`)
}

func (s *Store) listPosts(ctx context.Context, query string) ([]content.Header, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var headers []content.Header
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		headers = append(headers, p.Header)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	content.SortHeaders(headers)
	return headers, nil
}

// GetPost returns a post by slug, drafts included. Unknown slugs return
// content.ErrNotFound.
func (s *Store) GetPost(ctx context.Context, slug string) (content.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return content.Post{}, fmt.Errorf("%w: %q", content.ErrNotFound, slug)
	}
	return p, err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SavePost upserts a post. Tags are normalized to lowercase.
func (s *Store) SavePost(ctx context.Context, p content.Post) error {
	return savePost(ctx, s.db, p)
}

func savePost(ctx context.Context, db execer, p content.Post) error {
	if strings.TrimSpace(p.Header.Slug) == "" {
		return errors.New("save post: slug is required")
	}
	h := p.Header
	draft := 0
	if h.Draft {
		draft = 1
	}
	_, err := db.ExecContext(ctx, `INSERT OR REPLACE INTO posts (`+postColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.Slug, h.Title, h.Summary, h.AuthorName, h.AuthorImage, h.Published,
		h.Thumbnail, formatTags(h.Tags), p.Raw, draft)
	return err
}

// DeletePost removes a post by slug.
func (s *Store) DeletePost(ctx context.Context, slug string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE slug = ?`, slug)
	return err
}

// ImportFrom replaces the stored posts with every post listed by src, in a
// single transaction. It returns the number of posts imported.
func (s *Store) ImportFrom(ctx context.Context, src Repository) (int, error) {
	headers, err := src.ListPosts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list source posts: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return 0, err
	}
	for _, h := range headers {
		p, err := src.GetPost(ctx, h.Slug)
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", h.Slug, err)
		}
		if err := savePost(ctx, tx, p); err != nil {
			return 0, fmt.Errorf("import %s: %w", h.Slug, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(headers), nil
}

func formatTags(tags []string) string {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	return "," + strings.Join(normalized, ",") + ","
}

// ParseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func ParseTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return nil
	}
	parts := strings.Split(tagString, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
