package content

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePost(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestFileRepositoryListAndGet(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "hello-world.mdx", "---\ntitle: Hello World\nsummary: First post\nauthor_name: Rizki\npublished: 2022-01-02\n---\n# Hello\n")
	writePost(t, dir, "second.md", "---\nslug: custom-slug\ntitle: Second\npublished: 2022-03-04\ntags: [go, web]\n---\nBody\n")
	writePost(t, dir, "wip.mdx", "---\ntitle: WIP\ndraft: true\npublished: 2023-01-01\n---\nnot yet\n")
	writePost(t, dir, "notes.txt", "ignored")

	repo := NewFileRepository(dir)
	headers, err := repo.ListPosts(context.Background())
	require.NoError(t, err)
	require.Len(t, headers, 2)
	assert.Equal(t, "custom-slug", headers[0].Slug)
	assert.Equal(t, "hello-world", headers[1].Slug)
	assert.Equal(t, []string{"go", "web"}, headers[0].Tags)

	p, err := repo.GetPost(context.Background(), "hello-world")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", p.Header.Title)
	assert.Equal(t, "2022-01-02", p.Header.Published)
	assert.Equal(t, "# Hello\n", p.Raw)
}

func TestFileRepositoryGetMissing(t *testing.T) {
	repo := NewFileRepository(t.TempDir())
	_, err := repo.GetPost(context.Background(), "missing-post")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFileRepositoryDraftsAreResolvable(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "wip.mdx", "---\ntitle: WIP\ndraft: true\n---\nbody\n")
	p, err := NewFileRepository(dir).GetPost(context.Background(), "wip")
	require.NoError(t, err)
	assert.True(t, p.Header.Draft)
}

func TestFileRepositoryDuplicateSlug(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.mdx", "---\nslug: same\n---\n")
	writePost(t, dir, "b.mdx", "---\nslug: same\n---\n")
	_, err := NewFileRepository(dir).ListPosts(context.Background())
	assert.True(t, errors.Is(err, ErrDuplicateSlug))
}

func TestFileRepositoryReturnsCopies(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.mdx", "---\ntags: [x]\n---\n")
	repo := NewFileRepository(dir)
	p, err := repo.GetPost(context.Background(), "a")
	require.NoError(t, err)
	p.Header.Tags[0] = "mutated"
	p.Header.Views = 99

	again, err := repo.GetPost(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, again.Header.Tags)
	assert.Zero(t, again.Header.Views)
}

func TestFileRepositoryGetIgnoresUnrelatedBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "good.mdx", "---\ntitle: Good\npublished: 2024-01-01\n---\nfine\n")
	writePost(t, dir, "bad.mdx", "---\ntitle: [unclosed\n---\nbroken\n")
	repo := NewFileRepository(dir)

	p, err := repo.GetPost(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "Good", p.Header.Title)

	_, err = repo.GetPost(context.Background(), "bad")
	assert.True(t, errors.Is(err, ErrMalformedFrontmatter), "broken file is reported for its own slug: %v", err)

	_, err = repo.ListPosts(context.Background())
	assert.True(t, errors.Is(err, ErrMalformedFrontmatter), "listing still fails on any broken file: %v", err)
}

func TestFileRepositoryGetDuplicateSlug(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "a.mdx", "---\nslug: same\n---\n")
	writePost(t, dir, "b.mdx", "---\nslug: same\n---\n")
	_, err := NewFileRepository(dir).GetPost(context.Background(), "same")
	assert.True(t, errors.Is(err, ErrDuplicateSlug))
}

func TestFileRepositoryMissingDir(t *testing.T) {
	_, err := NewFileRepository(filepath.Join(t.TempDir(), "nope")).GetPost(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound), "an unreadable dir is not a missing post")
}
