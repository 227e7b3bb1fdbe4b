package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github/itish2003/vaultchat/models"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newVault(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "Zettelkasten is a note taking method.")
	writeFile(t, filepath.Join(dir, "b.md"), "Groceries: milk, eggs.")
	writeFile(t, filepath.Join(dir, "sub", "c.md"), "More about ZETTELKASTEN links.")
	writeFile(t, filepath.Join(dir, "sub", "d.txt"), "zettelkasten in plain text")
	writeFile(t, filepath.Join(dir, "e.md"), "Linking your thinking")
	writeFile(t, filepath.Join(dir, "image.png"), "zettelkasten")
	writeFile(t, filepath.Join(dir, ".trash", "old.md"), "zettelkasten")
	return dir
}

func TestKeywordSearcher_MatchesAnyTermCaseInsensitive(t *testing.T) {
	dir := newVault(t)
	k := NewKeywordSearcher(dir)

	matches, err := k.Search(context.Background(), "Zettelkasten linking")
	require.NoError(t, err)

	var names []string
	for _, m := range matches {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"a.md", "e.md", "c.md", "d.txt"}, names)
	assert.Equal(t, filepath.Join(dir, "a.md"), matches[0].Path)
	assert.Contains(t, matches[0].Content, "note taking")
}

func TestKeywordSearcher_CacheAndInvalidate(t *testing.T) {
	dir := newVault(t)
	k := NewKeywordSearcher(dir)
	path := filepath.Join(dir, "b.md")

	assert.Equal(t, "Groceries: milk, eggs.", k.Read(path))
	writeFile(t, path, "Groceries: bread.")
	assert.Equal(t, "Groceries: milk, eggs.", k.Read(path))

	k.Invalidate(path)
	assert.Equal(t, "Groceries: bread.", k.Read(path))
}

func TestKeywordSearcher_EmptyQuery(t *testing.T) {
	k := NewKeywordSearcher(newVault(t))
	matches, err := k.Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFindVaults(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(home, "Documents", "Obsidian", "Work", ".obsidian"), 0o755))
	writeFile(t, filepath.Join(home, "Desktop", "Notes", "deep", "x.md"), "# x")
	require.NoError(t, os.MkdirAll(filepath.Join(home, "Desktop", "Empty"), 0o755))
	writeFile(t, filepath.Join(home, "Projects", "readme.md"), "# p")

	vaults := FindVaults(home)

	assert.Contains(t, vaults, filepath.Join(home, "Documents", "Obsidian", "Work"))
	assert.Contains(t, vaults, filepath.Join(home, "Desktop", "Notes"))
	assert.Contains(t, vaults, filepath.Join(home, "Projects"))
	assert.NotContains(t, vaults, filepath.Join(home, "Desktop", "Empty"))
	assert.Equal(t, filepath.Join(home, "Documents", "Obsidian", "Work"), vaults[0])

	seen := map[string]bool{}
	for _, v := range vaults {
		assert.False(t, seen[v], "duplicate %s", v)
		seen[v] = true
	}
}

func TestFileActions_ReadNoteConfinedToVault(t *testing.T) {
	dir := newVault(t)
	fa, err := NewFileActions(dir)
	require.NoError(t, err)

	note, err := fa.ReadNote("sub/c.md")
	require.NoError(t, err)
	assert.Equal(t, "c.md", note.Name)
	assert.Contains(t, note.Content, "ZETTELKASTEN")

	note, err = fa.ReadNote(filepath.Join(dir, "a.md"))
	require.NoError(t, err)
	assert.Equal(t, "a.md", note.Name)

	_, err = fa.ReadNote("../outside.md")
	assert.ErrorIs(t, err, ErrOutsideVault)
	_, err = fa.ReadNote("image.png")
	assert.Error(t, err)
}

func TestFileActions_SymlinkEscapesRefused(t *testing.T) {
	dir := newVault(t)
	outside := t.TempDir()
	writeFile(t, filepath.Join(outside, "secret.md"), "top secret")
	require.NoError(t, os.Symlink(filepath.Join(outside, "secret.md"), filepath.Join(dir, "link.md")))
	require.NoError(t, os.Symlink(outside, filepath.Join(dir, "linked")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "a.md"), filepath.Join(dir, "alias.md")))

	fa, err := NewFileActions(dir)
	require.NoError(t, err)

	_, err = fa.ReadNote("link.md")
	assert.ErrorIs(t, err, ErrOutsideVault)
	_, err = fa.ReadNote("linked/secret.md")
	assert.ErrorIs(t, err, ErrOutsideVault)

	note, err := fa.ReadNote("alias.md")
	require.NoError(t, err)
	assert.Equal(t, "Zettelkasten is a note taking method.", note.Content)

	_, err = fa.ReadNote("missing.md")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrOutsideVault)
}

func TestMarkdownRenderer(t *testing.T) {
	r := NewMarkdownRenderer()
	out, err := r.Render("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n```go\nfmt.Println()\n```\n\n<script>alert(1)</script>")
	require.NoError(t, err)

	assert.Contains(t, out, `<div class="markdown-content">`)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, `class="language-go"`)
	assert.NotContains(t, out, "<script>")
}

func TestBuildPrompt(t *testing.T) {
	ctx := BuildContext([]models.NoteMatch{
		{Name: "a.md", Content: "alpha"},
		{Name: "b.md", Content: "beta"},
	})
	assert.Equal(t, "\nFile: a.md\nalpha\n\nFile: b.md\nbeta\n", ctx)
	assert.Equal(t, "Context: "+ctx+"\n\nQuestion: what?", BuildPrompt("what?", ctx))
}

func TestHistoryStore_AppendAndRecent(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenHistoryStore(dir)
	require.NoError(t, err)

	for _, q := range []string{"one", "two", "three"} {
		require.NoError(t, store.Append(models.Exchange{Query: q, Status: models.StatusSuccess}))
	}
	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "three", recent[0].Query)
	assert.Equal(t, "two", recent[1].Query)
	require.NoError(t, store.Close())

	reopened, err := OpenHistoryStore(dir)
	require.NoError(t, err)
	defer reopened.Close()
	require.NoError(t, reopened.Append(models.Exchange{Query: "four"}))
	all, err := reopened.Recent(0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "four", all[0].Query)
}

func TestHistoryStore_Disabled(t *testing.T) {
	store, err := OpenHistoryStore("")
	require.NoError(t, err)
	assert.Nil(t, store)
	assert.NoError(t, store.Append(models.Exchange{}))
	recent, err := store.Recent(10)
	assert.NoError(t, err)
	assert.Empty(t, recent)
}

func TestExtractTextFromFile_Unsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.docx")
	writeFile(t, path, "x")
	_, err := ExtractTextFromFile(path)
	assert.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}
