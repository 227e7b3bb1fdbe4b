package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{float32(len(text))}, nil
}

type fakeStore struct {
	mu      sync.Mutex
	chunks  []Chunk
	nearest []string
	added   []string
	deleted []string
}

func (f *fakeStore) Add(_ context.Context, chunk Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunk)
	f.added = append(f.added, chunk.Source)
	return nil
}

func (f *fakeStore) Nearest(context.Context, []float32, int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.nearest...), nil
}

func (f *fakeStore) Hashes(context.Context) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	hashes := make(map[string]string)
	for _, c := range f.chunks {
		if _, ok := hashes[c.Source]; !ok {
			hashes[c.Source] = c.Hash
		}
	}
	return hashes, nil
}

func (f *fakeStore) DeleteSource(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.chunks[:0]
	for _, c := range f.chunks {
		if c.Source != path {
			kept = append(kept, c)
		}
	}
	f.chunks = kept
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeStore) hashOf(path string) string {
	hashes, _ := f.Hashes(context.Background())
	return hashes[path]
}

func (f *fakeStore) addedSources() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.added...)
	sort.Strings(out)
	return out
}

func hashOf(t *testing.T, path string) string {
	t.Helper()
	h, err := calculateFileHash(path)
	require.NoError(t, err)
	return h
}

func TestFileIndexingService_SearchDedupesBySource(t *testing.T) {
	dir := newVault(t)
	a, b, c := filepath.Join(dir, "a.md"), filepath.Join(dir, "b.md"), filepath.Join(dir, "sub", "c.md")
	store := &fakeStore{nearest: []string{a, c, a, "", c, b}}
	idx := NewFileIndexingService(store, &fakeEmbedder{}, NewKeywordSearcher(dir))

	matches, err := idx.Search(context.Background(), "anything")
	require.NoError(t, err)

	var names []string
	for _, m := range matches {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"a.md", "c.md", "b.md"}, names)
	assert.Equal(t, "Zettelkasten is a note taking method.", matches[0].Content)
}

func TestFileIndexingService_SearchFallsBackToKeywords(t *testing.T) {
	dir := newVault(t)
	idx := NewFileIndexingService(&fakeStore{}, &fakeEmbedder{}, NewKeywordSearcher(dir))

	matches, err := idx.Search(context.Background(), "groceries")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "b.md", matches[0].Name)
}

func TestFileIndexingService_SearchEmbedError(t *testing.T) {
	idx := NewFileIndexingService(&fakeStore{}, &fakeEmbedder{err: errors.New("boom")}, NewKeywordSearcher(newVault(t)))
	_, err := idx.Search(context.Background(), "x")
	assert.ErrorContains(t, err, "failed to embed query text: boom")
}

func TestFileIndexingService_ScanSyncsChangedAndVanishedFiles(t *testing.T) {
	dir := newVault(t)
	a, c := filepath.Join(dir, "a.md"), filepath.Join(dir, "sub", "c.md")
	gone := filepath.Join(dir, "gone.md")
	store := &fakeStore{chunks: []Chunk{
		{Source: a, Hash: hashOf(t, a)},
		{Source: c, Hash: "stale"},
		{Source: gone, Hash: "whatever"},
	}}
	idx := NewFileIndexingService(store, &fakeEmbedder{}, NewKeywordSearcher(dir))

	idx.ScanAndIndexDirectory(context.Background(), dir)

	assert.Equal(t, []string{
		filepath.Join(dir, "b.md"),
		filepath.Join(dir, "e.md"),
		c,
		filepath.Join(dir, "sub", "d.txt"),
	}, store.addedSources())
	assert.ElementsMatch(t, []string{c, gone}, store.deleted)

	hashes, err := store.Hashes(context.Background())
	require.NoError(t, err)
	assert.Len(t, hashes, 5)
	assert.NotContains(t, hashes, gone)
	assert.NotContains(t, hashes, filepath.Join(dir, ".trash", "old.md"))
	assert.Equal(t, hashOf(t, c), hashes[c])
	assert.Equal(t, hashOf(t, a), hashes[a])
}

func TestFileIndexingService_WatcherReindexesAndInvalidates(t *testing.T) {
	dir := newVault(t)
	a, b := filepath.Join(dir, "a.md"), filepath.Join(dir, "b.md")
	store := &fakeStore{}
	keyword := NewKeywordSearcher(dir)
	idx := NewFileIndexingService(store, &fakeEmbedder{}, keyword)
	require.Equal(t, "Zettelkasten is a note taking method.", keyword.Read(a))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		idx.WatchDirectory(ctx, dir)
		close(stopped)
	}()
	defer func() {
		cancel()
		<-stopped
	}()

	const fresh = "rewritten note"
	require.Eventually(t, func() bool {
		_ = os.WriteFile(a, []byte(fresh), 0o644)
		h, err := calculateFileHash(a)
		return err == nil && store.hashOf(a) == h
	}, 5*time.Second, 50*time.Millisecond)
	assert.Eventually(t, func() bool { return keyword.Read(a) == fresh }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(b))
	assert.Eventually(t, func() bool { return store.hashOf(b) == "" && store.wasDeleted(b) }, 5*time.Second, 20*time.Millisecond)

	nested := filepath.Join(dir, "new", "n.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0o755))
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(nested, []byte("nested note"), 0o644)
		return store.hashOf(nested) != ""
	}, 5*time.Second, 50*time.Millisecond)
}

func (f *fakeStore) wasDeleted(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.deleted {
		if p == path {
			return true
		}
	}
	return false
}
