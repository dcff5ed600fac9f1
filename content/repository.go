package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Extensions lists the file extensions treated as posts.
var Extensions = []string{".mdx", ".md"}

// FileRepository reads posts from a flat directory of MDX/Markdown files.
// Every call re-reads the directory; nothing is cached between calls.
type FileRepository struct {
	dir string
}

// NewFileRepository returns a repository rooted at dir.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir}
}

// Dir returns the content directory.
func (r *FileRepository) Dir() string {
	return r.dir
}

// ListPosts returns the headers of every non-draft post, newest first.
func (r *FileRepository) ListPosts(ctx context.Context) ([]Header, error) {
	posts, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	headers := make([]Header, 0, len(posts))
	for _, p := range posts {
		if p.Header.Draft {
			continue
		}
		headers = append(headers, p.Header.Clone())
	}
	SortHeaders(headers)
	return headers, nil
}

// GetPost returns the post with the given slug, or ErrNotFound. Files that
// fail to parse only matter when their file stem is slug, so one broken
// post does not hide the others.
func (r *FileRepository) GetPost(ctx context.Context, slug string) (Post, error) {
	paths, err := r.postFiles()
	if err != nil {
		return Post{}, err
	}
	var (
		found   Post
		foundAt string
	)
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return Post{}, err
		}
		p, err := ReadFile(path)
		if err != nil {
			if stem(path) == slug {
				return Post{}, err
			}
			continue
		}
		if p.Header.Slug != slug {
			continue
		}
		if foundAt != "" {
			return Post{}, fmt.Errorf("%w: %q in %s and %s", ErrDuplicateSlug, slug, foundAt, path)
		}
		found, foundAt = p, path
	}
	if foundAt == "" {
		return Post{}, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	found.Header = found.Header.Clone()
	return found, nil
}

// load parses every post file. Any unreadable file or duplicate slug fails
// the whole listing.
func (r *FileRepository) load(ctx context.Context) (map[string]Post, error) {
	paths, err := r.postFiles()
	if err != nil {
		return nil, err
	}
	posts := make(map[string]Post, len(paths))
	sources := make(map[string]string, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if prev, dup := sources[p.Header.Slug]; dup {
			return nil, fmt.Errorf("%w: %q in %s and %s", ErrDuplicateSlug, p.Header.Slug, prev, path)
		}
		sources[p.Header.Slug] = path
		posts[p.Header.Slug] = p
	}
	return posts, nil
}

// postFiles returns the paths of the post files in the content dir.
func (r *FileRepository) postFiles() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read content dir: %w", err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isPostFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(r.dir, e.Name()))
	}
	return paths, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadFile parses a single post file. A missing slug falls back to the file stem.
func ReadFile(path string) (Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Post{}, err
	}
	p, err := ParseDocument(raw)
	if err != nil {
		return Post{}, fmt.Errorf("%s: %w", path, err)
	}
	if strings.TrimSpace(p.Header.Slug) == "" {
		p.Header.Slug = stem(path)
	}
	return p, nil
}

// SortHeaders orders headers by published date descending, then by slug.
func SortHeaders(headers []Header) {
	sort.SliceStable(headers, func(i, j int) bool {
		if headers[i].Published != headers[j].Published {
			return headers[i].Published > headers[j].Published
		}
		return headers[i].Slug < headers[j].Slug
	})
}

func isPostFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
